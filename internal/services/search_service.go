package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/charlesng35/studyhall/internal/models"
	"github.com/charlesng35/studyhall/internal/store"
)

const snippetContext = 20

// Search match kinds.
const (
	MatchPost  = "post"
	MatchReply = "reply"
)

// SearchResult is one post that matched a keyword.
type SearchResult struct {
	Post      models.Post
	MatchType string
	ReplyID   uint
	Snippet   string
}

// SearchService finds posts whose title, body or replies contain a keyword.
type SearchService struct {
	store *store.Store
}

// NewSearchService constructs a SearchService.
func NewSearchService(st *store.Store) (*SearchService, error) {
	if st == nil {
		return nil, errors.New("search service: store is required")
	}
	return &SearchService{store: st}, nil
}

// Search matches keyword case-insensitively against posts in thread, deleted posts included,
// most recently updated first. A post matching in its own text is reported as a post match;
// otherwise its first matching reply makes it a reply match.
func (s *SearchService) Search(ctx context.Context, keyword, thread string) ([]SearchResult, error) {
	ctx = ensureContext(ctx)

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrSearchKeywordNeeded
	}
	filter := store.PostFilter{IncludeDeleted: true}
	if !models.IsAllThreads(thread) {
		resolved, err := resolveThread(thread)
		if err != nil {
			return nil, err
		}
		filter.Thread = string(resolved)
	}

	posts, err := s.store.ListPosts(ctx, filter)
	if err != nil {
		return nil, wrapUnexpected("search service", "list posts", err)
	}

	var results []SearchResult
	for _, post := range posts {
		text := post.Title + "\n" + post.Body
		if snippet, ok := matchSnippet(text, keyword); ok {
			results = append(results, SearchResult{Post: post, MatchType: MatchPost, Snippet: snippet})
			continue
		}

		replies, err := s.store.ListReplies(ctx, post.ID)
		if err != nil {
			return nil, wrapUnexpected("search service", "list replies", err)
		}
		for _, reply := range replies {
			if snippet, ok := matchSnippet(reply.Body, keyword); ok {
				results = append(results, SearchResult{Post: post, MatchType: MatchReply, ReplyID: reply.ID, Snippet: snippet})
				break
			}
		}
	}
	return results, nil
}

// matchSnippet finds needle in text ignoring case and returns the surrounding context.
func matchSnippet(text, needle string) (string, bool) {
	runes := []rune(text)
	target := foldRunes([]rune(needle))

	idx := indexRunes(foldRunes(runes), target)
	if idx < 0 {
		return "", false
	}

	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	end := idx + len(target) + snippetContext
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(string(runes[start:end])))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String(), true
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// foldRunes lower-cases rune by rune so indexes line up with the original text.
func foldRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}
