package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/hnpulse/internal/browser"
)

// Browser renders the page in headless Chrome and reads the first content
// container, falling back to the whole body.
type Browser struct {
	headless  bool
	userAgent string
}

// NewBrowser creates the strategy. It needs a local Chrome installation.
func NewBrowser(headless bool, userAgent string) *Browser {
	return &Browser{headless: headless, userAgent: userAgent}
}

func (b *Browser) Name() string { return "browser" }

type renderedPage struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

func (b *Browser) Extract(ctx context.Context, rawURL string) (Result, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(b.headless, b.userAgent)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	script, err := renderScript()
	if err != nil {
		return Result{}, err
	}

	var page renderedPage
	err = chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(script, &page),
	)
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	return Result{Text: cleanText(page.Text), HTML: page.HTML}, nil
}

func renderScript() (string, error) {
	selectors, err := json.Marshal(candidateQuery)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		(function(selectors) {
			for (const sel of selectors) {
				const el = document.querySelector(sel);
				if (el && el.innerText && el.innerText.trim()) {
					return {text: el.innerText, html: el.outerHTML};
				}
			}
			const body = document.body;
			return {text: body ? body.innerText : '', html: ''};
		})(%s)
	`, selectors), nil
}
