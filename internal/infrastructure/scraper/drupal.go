package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mygovpulse/internal/domain"
	"mygovpulse/internal/ports"
)

const ajaxPath = "/views/ajax/"

// defaultTokenFormats are the pagination-token encodings tried for
// page N > 0, in order. The remote pager is undocumented; the
// composite "0,N" form is what the live site answers, the plain "N"
// form is the fallback. Replace via WithTokenFormats when a site
// deviates.
var defaultTokenFormats = []string{"0,%d", "%d"}

var drupalSettingsExpr = regexp.MustCompile(`(?s)jQuery\.extend\(Drupal\.settings,\s*(\{.*?\})\s*\);`)

// browser-like headers; the site serves different markup to obvious bots.
var requestHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

// viewParams is the dynamic-view pagination configuration embedded in
// the listing page: the comment view's internal identity plus the DOM
// anchor and pager element the AJAX endpoint expects back.
type viewParams struct {
	ViewName      string
	ViewDisplayID string
	ViewArgs      string
	ViewPath      string
	ViewBasePath  string
	ViewDOMID     string
	PagerElement  string
}

// DrupalScraper walks the paginated comment listing of one
// consultation page through the site's views AJAX endpoint.
type DrupalScraper struct {
	client       *http.Client
	maxPages     int
	tokenFormats []string
	logger       *slog.Logger
}

var _ ports.CommentSource = (*DrupalScraper)(nil)

// NewDrupalScraper wires an HTTP client; maxPages bounds one run.
func NewDrupalScraper(client *http.Client, maxPages int, logger *slog.Logger) *DrupalScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxPages <= 0 {
		maxPages = 50
	}
	return &DrupalScraper{
		client:       client,
		maxPages:     maxPages,
		tokenFormats: defaultTokenFormats,
		logger:       logger,
	}
}

// WithTokenFormats overrides the pagination-token encodings tried for
// pages after the first. Each format receives the page index.
func (s *DrupalScraper) WithTokenFormats(formats []string) *DrupalScraper {
	if len(formats) > 0 {
		s.tokenFormats = formats
	}
	return s
}

// Scrape fetches the listing root, discovers the comment view
// configuration, and walks page fragments until two consecutive empty
// pages, a page with nothing new, or the page cap. Root fetch and
// configuration discovery failures are fatal; a single failed page
// fetch counts as an empty page.
func (s *DrupalScraper) Scrape(ctx context.Context, sourceURL string) ([]domain.RawComment, error) {
	rootHTML, err := s.fetchRoot(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch source page: %w", err)
	}

	params, err := extractViewParams(rootHTML)
	if err != nil {
		return nil, fmt.Errorf("discover view configuration: %w", err)
	}

	collected := make([]domain.RawComment, 0)
	seen := map[string]struct{}{}
	emptyStreak := 0

	for pageIndex := 0; pageIndex < s.maxPages; pageIndex++ {
		pageRows := s.fetchPageRows(ctx, sourceURL, params, pageIndex)

		if len(pageRows) == 0 {
			emptyStreak++
			if pageIndex > 0 && emptyStreak >= 2 {
				break
			}
			continue
		}

		emptyStreak = 0
		newInPage := 0
		for _, row := range pageRows {
			key := row.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			collected = append(collected, row)
			newInPage++
		}

		if pageIndex > 0 && newInPage == 0 {
			break
		}
	}

	return collected, nil
}

// fetchPageRows tries each candidate token encoding for the page index
// and returns the first non-empty extraction. Per-page fetch errors
// degrade to an empty page.
func (s *DrupalScraper) fetchPageRows(ctx context.Context, sourceURL string, params viewParams, pageIndex int) []domain.RawComment {
	tokens := []string{"0"}
	if pageIndex > 0 {
		tokens = tokens[:0]
		for _, format := range s.tokenFormats {
			tokens = append(tokens, fmt.Sprintf(format, pageIndex))
		}
	}

	for _, token := range tokens {
		fragment, err := s.fetchAjaxFragment(ctx, sourceURL, params, token)
		if err != nil {
			s.debug("page fetch failed", "page", pageIndex, "token", token, "error", err)
			continue
		}
		if rows := ExtractComments(fragment); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func (s *DrupalScraper) fetchRoot(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(body), nil
}

// fetchAjaxFragment requests one page of the comment view and returns
// the HTML fragment carried by the first "insert" command in the
// response, or an empty string when the payload has none.
func (s *DrupalScraper) fetchAjaxFragment(ctx context.Context, sourceURL string, params viewParams, pageToken string) (string, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	ajaxURL := base.ResolveReference(&url.URL{Path: ajaxPath})

	query := url.Values{}
	query.Set("view_name", params.ViewName)
	query.Set("view_display_id", params.ViewDisplayID)
	query.Set("view_args", params.ViewArgs)
	query.Set("view_path", params.ViewPath)
	query.Set("view_base_path", params.ViewBasePath)
	query.Set("view_dom_id", params.ViewDOMID)
	query.Set("pager_element", params.PagerElement)
	query.Set("_drupal_ajax", "1")
	query.Set("page", pageToken)
	ajaxURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ajaxURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	applyHeaders(req)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", sourceURL)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ajax endpoint returned %s", resp.Status)
	}

	var payload []struct {
		Command string          `json:"command"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode ajax response: %w", err)
	}

	for _, item := range payload {
		if item.Command != "insert" {
			continue
		}
		var data string
		if err := json.Unmarshal(item.Data, &data); err == nil {
			return data, nil
		}
	}
	return "", nil
}

// extractViewParams locates the inline Drupal settings blob and picks
// the ajax view describing the comment listing: the one whose view
// name mentions comments, else the first registered view.
func extractViewParams(pageHTML string) (viewParams, error) {
	match := drupalSettingsExpr.FindStringSubmatch(pageHTML)
	if match == nil {
		return viewParams{}, fmt.Errorf("settings blob not found in source page")
	}

	var settings struct {
		Views struct {
			AjaxViews map[string]map[string]any `json:"ajaxViews"`
		} `json:"views"`
	}
	if err := json.Unmarshal([]byte(match[1]), &settings); err != nil {
		return viewParams{}, fmt.Errorf("parse settings blob: %w", err)
	}
	if len(settings.Views.AjaxViews) == 0 {
		return viewParams{}, fmt.Errorf("no ajax view configuration present")
	}

	var selected map[string]any
	for _, view := range settings.Views.AjaxViews {
		name, _ := view["view_name"].(string)
		if containsFold(name, "comment") {
			selected = view
			break
		}
	}
	if selected == nil {
		for _, view := range settings.Views.AjaxViews {
			selected = view
			break
		}
	}

	params := viewParams{
		ViewName:      stringValue(selected, "view_name"),
		ViewDisplayID: stringValue(selected, "view_display_id"),
		ViewArgs:      stringValue(selected, "view_args"),
		ViewPath:      stringValue(selected, "view_path"),
		ViewBasePath:  stringValue(selected, "view_base_path"),
		ViewDOMID:     stringValue(selected, "view_dom_id"),
		PagerElement:  stringValue(selected, "pager_element"),
	}
	if params.ViewName == "" || params.ViewDOMID == "" {
		return viewParams{}, fmt.Errorf("ajax view configuration is incomplete")
	}
	return params, nil
}

// stringValue renders a settings field as a string; numeric fields
// such as pager_element arrive as JSON numbers.
func stringValue(view map[string]any, key string) string {
	value, ok := view[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func applyHeaders(req *http.Request) {
	for name, value := range requestHeaders {
		req.Header.Set(name, value)
	}
}

func (s *DrupalScraper) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
