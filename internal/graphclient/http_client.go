package graphclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ideagraph/internal/apperr"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxFolderNameLen = 128

// HTTPClient is a thin REST client against the Microsoft Graph API,
// mirroring the raw net/http + manual JSON marshal/unmarshal idiom used
// throughout this codebase's external-collaborator clients.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tokenFunc  func(ctx context.Context) (string, error)
}

func NewHTTPClient(baseURL string, httpClient *http.Client, tokenFunc func(ctx context.Context) (string, error), logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient, tokenFunc: tokenFunc, logger: logger}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("graphclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("graphclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokenFunc(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "graph token acquisition failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "graph request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return apperr.New(apperr.KindTransient, fmt.Sprintf("graph returned %d for %s %s", resp.StatusCode, method, path))
	}
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.KindPermanent, fmt.Sprintf("graph returned %d for %s %s", resp.StatusCode, method, path))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type listMessagesResponse struct {
	Value      []Message `json:"value"`
	NextCursor string    `json:"nextCursor"`
}

func (c *HTTPClient) ListMailSince(ctx context.Context, mailbox, folder, cursor string) ([]Message, string, error) {
	path := fmt.Sprintf("/users/%s/mailFolders/%s/messages?cursor=%s", url.PathEscape(mailbox), url.PathEscape(folder), url.QueryEscape(cursor))
	var resp listMessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Value, resp.NextCursor, nil
}

func (c *HTTPClient) MoveMail(ctx context.Context, mailbox, messageID, destFolder string) error {
	path := fmt.Sprintf("/users/%s/messages/%s/move", url.PathEscape(mailbox), url.PathEscape(messageID))
	return c.do(ctx, http.MethodPost, path, map[string]string{"destinationId": destFolder}, nil)
}

func (c *HTTPClient) SendMail(ctx context.Context, mailbox string, to []string, subject, bodyHTML string) error {
	path := fmt.Sprintf("/users/%s/sendMail", url.PathEscape(mailbox))
	recipients := make([]map[string]any, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, map[string]any{"emailAddress": map[string]string{"address": addr}})
	}
	payload := map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body":    map[string]string{"contentType": "HTML", "content": bodyHTML},
			"toRecipients": recipients,
		},
	}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *HTTPClient) ListChannelMessagesSince(ctx context.Context, teamID, channelID, cursor string) ([]Message, string, error) {
	path := fmt.Sprintf("/teams/%s/channels/%s/messages?cursor=%s", url.PathEscape(teamID), url.PathEscape(channelID), url.QueryEscape(cursor))
	var resp listMessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Value, resp.NextCursor, nil
}

func (c *HTTPClient) PostChannelMessage(ctx context.Context, teamID, channelID, bodyHTML string) error {
	path := fmt.Sprintf("/teams/%s/channels/%s/messages", url.PathEscape(teamID), url.PathEscape(channelID))
	payload := map[string]any{"body": map[string]string{"contentType": "html", "content": bodyHTML}}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

type userResponse struct {
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (c *HTTPClient) ResolveUserByObjectID(ctx context.Context, objectID string) (string, string, string, error) {
	path := fmt.Sprintf("/users/%s", url.PathEscape(objectID))
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", "", "", err
	}
	return resp.DisplayName, resp.Mail, resp.UserPrincipalName, nil
}

func (c *HTTPClient) UploadFile(ctx context.Context, libraryID, folderID, name string, content []byte) (*File, error) {
	path := fmt.Sprintf("/drives/%s/items/%s:/%s:/content", url.PathEscape(libraryID), url.PathEscape(folderID), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("graphclient: build upload request: %w", err)
	}
	token, err := c.tokenFunc(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "graph token acquisition failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "graph upload failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.KindPermanent, fmt.Sprintf("graph upload returned %d", resp.StatusCode))
	}

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("graphclient: decode upload response: %w", err)
	}
	return &f, nil
}

func (c *HTTPClient) MoveFile(ctx context.Context, libraryID, fileID, destFolderID string) error {
	path := fmt.Sprintf("/drives/%s/items/%s", url.PathEscape(libraryID), url.PathEscape(fileID))
	payload := map[string]any{"parentReference": map[string]string{"id": destFolderID}}
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

func (c *HTTPClient) DeleteFile(ctx context.Context, libraryID, fileID string) error {
	path := fmt.Sprintf("/drives/%s/items/%s", url.PathEscape(libraryID), url.PathEscape(fileID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

type folderResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) EnsureFolder(ctx context.Context, libraryID, parentFolderID, name string) (string, error) {
	path := fmt.Sprintf("/drives/%s/items/%s/children", url.PathEscape(libraryID), url.PathEscape(parentFolderID))
	payload := map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "fail",
	}
	var resp folderResponse
	err := c.do(ctx, http.MethodPost, path, payload, &resp)
	if err == nil {
		return resp.ID, nil
	}

	var ae *apperr.Error
	if !isPermanentConflict(err, &ae) {
		return "", err
	}
	// Already exists: look it up by name instead of treating this as fatal.
	listPath := fmt.Sprintf("/drives/%s/items/%s/children?$filter=name eq '%s'", url.PathEscape(libraryID), url.PathEscape(parentFolderID), url.QueryEscape(name))
	var list struct {
		Value []folderResponse `json:"value"`
	}
	if lookupErr := c.do(ctx, http.MethodGet, listPath, nil, &list); lookupErr != nil {
		return "", lookupErr
	}
	if len(list.Value) == 0 {
		return "", err
	}
	return list.Value[0].ID, nil
}

func isPermanentConflict(err error, target **apperr.Error) bool {
	ae, ok := err.(*apperr.Error)
	if !ok {
		return false
	}
	*target = ae
	return ae.Kind == apperr.KindPermanent
}

// NormalizeFolderName implements the bit-exact folder normalization rule
// (spec.md §6 "Folder normalization"): NFKD-normalize, strip characters
// outside [A-Za-z0-9 ._-], collapse whitespace, truncate to 128 chars.
// Collisions are resolved by the caller appending "-<shortid>".
func NormalizeFolderName(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isDisallowedFolderRune)))
	normalized, _, err := transform.String(t, title)
	if err != nil {
		normalized = title
	}

	collapsed := strings.Join(strings.Fields(normalized), " ")
	if len(collapsed) > maxFolderNameLen {
		collapsed = collapsed[:maxFolderNameLen]
	}
	return collapsed
}

func isDisallowedFolderRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == ' ' || r == '.' || r == '_' || r == '-':
		return false
	default:
		return true
	}
}
