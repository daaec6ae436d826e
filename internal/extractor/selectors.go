package extractor

// Structural fallback candidates, tried in priority order.
// contentMarker is matched as a class token or id first, then as a substring.
const (
	ArticleTag    = "article"
	MainTag       = "main"
	ContentTag    = "div"
	contentMarker = "content"
)

// candidateQuery is the same priority list as a CSS selector group, used by
// the browser strategy where querySelector does the matching.
var candidateQuery = []string{
	ArticleTag,
	MainTag,
	`div.content`,
	`div#content`,
	`div[class*="content"]`,
	`div[id*="content"]`,
}

// Elements whose text never counts as page content.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// Elements that end a line when flattened to text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "pre": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "main": true, "blockquote": true,
	"header": true, "footer": true, "ul": true, "ol": true, "table": true,
}
