package plugin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notepress/notepress/internal/content"
	"github.com/notepress/notepress/internal/integration"
)

// Builtin returns the built-in plugin for an id, or nil when unknown.
func Builtin(id string) Plugin {
	switch id {
	case "collections":
		return CollectionsPlugin{}
	case "archive":
		return ArchivePlugin{}
	case "social-feed":
		return SocialFeedPlugin{}
	}
	return nil
}

// CollectionsPlugin renders the selected collected resources as an index page.
type CollectionsPlugin struct{}

func (CollectionsPlugin) Name() string { return "collections" }

func (CollectionsPlugin) Emit(m *integration.Manifest, _ []content.FileEntry) ([]Page, error) {
	store := m.Store(integration.StoreCollections)
	if !store.HasData {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("# Collections\n\n")
	for _, rec := range store.Records {
		if !rec.Flag("selected") {
			continue
		}
		title := rec.String("title")
		if title == "" {
			title = rec.String("id")
		}
		if u := rec.String("url"); u != "" {
			fmt.Fprintf(&b, "- [%s](%s)\n", title, u)
		} else {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	return []Page{{Slug: "collections/index", Title: "Collections", Content: b.String()}}, nil
}

// ArchivePlugin lists confirmed archived uploads.
type ArchivePlugin struct{}

func (ArchivePlugin) Name() string { return "archive" }

func (ArchivePlugin) Emit(m *integration.Manifest, _ []content.FileEntry) ([]Page, error) {
	store := m.Store(integration.StoreUploads)
	if !store.HasData {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("# Archive\n\n")
	count := 0
	for _, rec := range store.Records {
		if !rec.Flag("confirmed") {
			continue
		}
		name := rec.String("file")
		if name == "" {
			name = rec.String("id")
		}
		fmt.Fprintf(&b, "- %s\n", name)
		count++
	}
	fmt.Fprintf(&b, "\n%d archived uploads.\n", count)
	return []Page{{Slug: "archive/index", Title: "Archive", Content: b.String()}}, nil
}

// SocialFeedPlugin renders social-post records, newest first by "posted_at".
type SocialFeedPlugin struct{}

func (SocialFeedPlugin) Name() string { return "social-feed" }

func (SocialFeedPlugin) Emit(m *integration.Manifest, _ []content.FileEntry) ([]Page, error) {
	store := m.Store(integration.StoreSocialPosts)
	if !store.HasData {
		return nil, nil
	}

	records := append([]integration.Record(nil), store.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].String("posted_at") > records[j].String("posted_at")
	})

	var b strings.Builder
	b.WriteString("# Feed\n\n")
	for _, rec := range records {
		text := rec.String("text")
		if text == "" {
			continue
		}
		if at := rec.String("posted_at"); at != "" {
			fmt.Fprintf(&b, "**%s**\n\n", at)
		}
		b.WriteString(text)
		b.WriteString("\n\n---\n\n")
	}
	return []Page{{Slug: "feed/index", Title: "Feed", Content: b.String()}}, nil
}
