package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const settingsBlob = `<script>
jQuery.extend(Drupal.settings, {"views":{"ajaxViews":{
  "views_dom_id:deadbeef":{"view_name":"news_block","view_display_id":"block_2","view_dom_id":"deadbeef","pager_element":0},
  "views_dom_id:abc123":{"view_name":"comment_listing","view_display_id":"block_1","view_args":"1234","view_path":"node/1234","view_base_path":"","view_dom_id":"abc123","pager_element":0}
}}});
</script>`

func commentFragment(entries ...[2]string) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, `<article class="comment_row"><span class="username">%s</span><div class="comment_body">%s</div></article>`, e[0], e[1])
	}
	return b.String()
}

func TestExtractViewParams(t *testing.T) {
	t.Parallel()

	params, err := extractViewParams("<html><body>" + settingsBlob + "</body></html>")
	if err != nil {
		t.Fatalf("extractViewParams error: %v", err)
	}
	if params.ViewName != "comment_listing" {
		t.Fatalf("comment view must win over other views, got %s", params.ViewName)
	}
	if params.ViewDOMID != "abc123" {
		t.Fatalf("unexpected dom id: %s", params.ViewDOMID)
	}
	if params.PagerElement != "0" {
		t.Fatalf("numeric pager_element must render as plain integer, got %q", params.PagerElement)
	}
}

func TestExtractViewParamsMissingBlob(t *testing.T) {
	t.Parallel()

	if _, err := extractViewParams("<html><body>no settings here</body></html>"); err == nil {
		t.Fatalf("expected error for page without settings blob")
	}
}

func TestScrapePagination(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"0": commentFragment(
			[2]string{"Priya", "First comment about the draft policy."},
			[2]string{"Ravi", "Second comment with a different opinion."},
		),
		// Page 1 only answers the plain token, exercising the fallback.
		"1": commentFragment(
			[2]string{"Ravi", "Second comment with a different opinion."},
			[2]string{"Asha", "Third comment, new on this page."},
		),
		"0,2": commentFragment(
			[2]string{"Meena", "Fourth comment closing the thread."},
		),
	}

	var mu sync.Mutex
	var requested []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/views/ajax") {
			_, _ = w.Write([]byte("<html><body>" + settingsBlob + "</body></html>"))
			return
		}

		if r.URL.Query().Get("view_name") != "comment_listing" {
			t.Errorf("unexpected view_name: %s", r.URL.Query().Get("view_name"))
		}
		if r.URL.Query().Get("_drupal_ajax") != "1" {
			t.Errorf("ajax marker missing from query")
		}

		token := r.URL.Query().Get("page")
		mu.Lock()
		requested = append(requested, token)
		mu.Unlock()

		fragment := pages[token]
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"command":"settings"},{"command":"insert","data":%q}]`, fragment)
	}))
	defer server.Close()

	sc := NewDrupalScraper(server.Client(), 10, nil)
	rows, err := sc.Scrape(context.Background(), server.URL+"/group-issue/test-consultation/")
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected 4 unique comments, got %d", len(rows))
	}
	if rows[0].Author != "Priya" || rows[3].Author != "Meena" {
		t.Fatalf("unexpected ordering: %s ... %s", rows[0].Author, rows[3].Author)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, token := range requested {
		if token == "0,5" || token == "5" {
			t.Fatalf("page 5 fetched after the stop condition")
		}
	}
}

func TestScrapeRootFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewDrupalScraper(server.Client(), 10, nil)
	if _, err := sc.Scrape(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error when the source page cannot be fetched")
	}
}

func TestScrapePageFetchErrorDegrades(t *testing.T) {
	t.Parallel()

	var failures int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/views/ajax") {
			_, _ = w.Write([]byte("<html><body>" + settingsBlob + "</body></html>"))
			return
		}

		token := r.URL.Query().Get("page")
		if token == "0" {
			fragment := commentFragment([2]string{"Priya", "Only comment on the first page."})
			fmt.Fprintf(w, `[{"command":"insert","data":%q}]`, fragment)
			return
		}

		failures++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	sc := NewDrupalScraper(server.Client(), 10, nil)
	rows, err := sc.Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("failed page fetches must not fail the run: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the page-0 comment, got %d rows", len(rows))
	}
	if failures == 0 {
		t.Fatalf("expected the scraper to attempt pages past the first")
	}
}
