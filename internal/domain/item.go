package domain

import "time"

// ItemStatus is a free-labeled status, serialized in lowercase (design
// note §9 — "dynamic enum-like strings ... closed tagged variants").
type ItemStatus string

const (
	ItemStatusNew     ItemStatus = "new"
	ItemStatusReady   ItemStatus = "ready"
	ItemStatusWorking ItemStatus = "working"
	ItemStatusReview  ItemStatus = "review"
	ItemStatusDone    ItemStatus = "done"
)

// Item is a project/feature container. May form a hierarchy via ParentID;
// the store enforces the no-cycle invariant at write time (spec.md §3,
// design note §9).
type Item struct {
	ID              string     `json:"id" bson:"_id"`
	Title           string     `json:"title" bson:"title"`
	Description     string     `json:"description" bson:"description"`
	ParentID        string     `json:"parentId,omitempty" bson:"parentId,omitempty"`
	IsTemplate      bool       `json:"isTemplate" bson:"isTemplate"`
	InheritContext  bool       `json:"inheritContext" bson:"inheritContext"`
	Status          ItemStatus `json:"status" bson:"status"`
	OwnerID         string     `json:"ownerId" bson:"ownerId"`
	ChannelID       string     `json:"channelId,omitempty" bson:"channelId,omitempty"`
	SourceRepo      string     `json:"sourceRepo,omitempty" bson:"sourceRepo,omitempty"`
	Tags            []string   `json:"tags" bson:"tags"`
	FolderID        string     `json:"folderId,omitempty" bson:"folderId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
}

// EffectiveContext returns the indexable body for this Item per spec.md §3:
// its own description+tags, unioned with the parent's when InheritContext
// is set. parent may be nil (root Item, or InheritContext false).
func (i Item) EffectiveContext(parent *Item) (description string, tags []string) {
	description = i.Description
	tags = append(tags, i.Tags...)

	if !i.InheritContext || parent == nil {
		return description, dedupe(tags)
	}

	if parent.Description != "" {
		description = description + "\n\n" + parent.Description
	}
	tags = append(tags, parent.Tags...)
	return description, dedupe(tags)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
