package types

import "time"

// CommentNode is a single comment in a fetched discussion tree.
type CommentNode struct {
	ID       int           `json:"id"`
	Author   string        `json:"author,omitempty"`
	Text     string        `json:"text"`
	Depth    int           `json:"depth"`
	Children []CommentNode `json:"children,omitempty"`
}

// DiscussionTree is a root story with its nested comments
type DiscussionTree struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	URL         *string       `json:"url,omitempty"` // external link, nil for Ask/Show HN text posts
	Author      string        `json:"author,omitempty"`
	Text        string        `json:"text,omitempty"`
	Time        time.Time     `json:"time"`
	Score       int           `json:"score"`
	Descendants int           `json:"descendants"`
	Comments    []CommentNode `json:"comments"`
}

// Flatten returns the comments in depth-first pre-order.
func (t *DiscussionTree) Flatten() []Comment {
	var out []Comment
	var walk func(nodes []CommentNode)
	walk = func(nodes []CommentNode) {
		for _, n := range nodes {
			out = append(out, Comment{Author: n.Author, Content: n.Text})
			walk(n.Children)
		}
	}
	walk(t.Comments)
	if out == nil {
		out = []Comment{}
	}
	return out
}

// Comment is a flattened comment as stored on an Item
type Comment struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Viewpoint is one consolidated opinion within a discussion.
type Viewpoint struct {
	Statement         string  `json:"statement"`
	SupportPercentage float64 `json:"support_percentage"`
}

// Perspective is the LLM analysis of a discussion
type Perspective struct {
	Title      string      `json:"title"`
	Summary    string      `json:"summary"`
	Sentiment  string      `json:"sentiment"`
	Viewpoints []Viewpoint `json:"viewpoints"`
}

// Item is the persisted aggregate for one root story.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	OriginalURL *string   `json:"original_url,omitempty"`
	Author      string    `json:"author,omitempty"`
	Content     *string   `json:"content,omitempty"`
	ContentHTML *string   `json:"content_html,omitempty"`
	Comments    []Comment `json:"comments"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Derived fields. GeneratedAtCommentCount is only set alongside AIPerspective.
	GeneratedAtCommentCount *int         `json:"generated_at_comment_count,omitempty"`
	AIPerspective           *Perspective `json:"ai_perspective,omitempty"`
	AISummary               *string      `json:"ai_summary,omitempty"`
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := it
	out.OriginalURL = cloneString(it.OriginalURL)
	out.Content = cloneString(it.Content)
	out.ContentHTML = cloneString(it.ContentHTML)
	out.AISummary = cloneString(it.AISummary)
	if it.Comments != nil {
		out.Comments = make([]Comment, len(it.Comments))
		copy(out.Comments, it.Comments)
	}
	if it.GeneratedAtCommentCount != nil {
		n := *it.GeneratedAtCommentCount
		out.GeneratedAtCommentCount = &n
	}
	if it.AIPerspective != nil {
		p := *it.AIPerspective
		p.Viewpoints = append([]Viewpoint(nil), it.AIPerspective.Viewpoints...)
		out.AIPerspective = &p
	}
	return out
}

// DiscussionURL returns the canonical HN discussion URL for a story id.
func DiscussionURL(id string) string {
	return "https://news.ycombinator.com/item?id=" + id
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
