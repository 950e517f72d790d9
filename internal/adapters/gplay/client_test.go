package gplay_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"review_scraper/internal/adapters/gplay"
	"review_scraper/internal/domain"
)

// buildEnvelope renders a batchexecute-style response: anti-JSON prefix, then
// an envelope whose first chunk carries the payload as a JSON string.
func buildEnvelope(t *testing.T, items []any, token string) string {
	t.Helper()
	var tok any
	if token != "" {
		tok = []any{nil, token}
	}
	payload, err := json.Marshal([]any{items, tok})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	env, err := json.Marshal([]any{
		[]any{"wrb.fr", "UsvDTd", string(payload), nil, nil, nil, "generic"},
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return ")]}'\n\n" + string(env)
}

// reviewItem builds one positional review record the way the backend emits
// them.
func reviewItem(id, author, body string, rating, thumbsUp int, version string) []any {
	return []any{
		id,                          // 0: id
		[]any{author},               // 1: [userName, ...]
		float64(rating),             // 2: score
		nil,                         // 3
		body,                        // 4: text
		[]any{float64(1714557600)},  // 5: [unix seconds]
		float64(thumbsUp),           // 6: thumbs up
		[]any{nil, "thanks!", []any{float64(1714600000)}}, // 7: reply
		nil, nil, // 8, 9
		version, // 10: app version
	}
}

func fetchReq() domain.FetchRequest {
	return domain.FetchRequest{AppID: "com.example.app", Lang: "en", Country: "us", Sort: domain.SortNewest, Count: 2}
}

func TestFetchPage_ParsesReviewsAndToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		items := []any{
			reviewItem("rev-1", "Ana", "great app", 5, 12, "2.4.1"),
			reviewItem("rev-2", "Ben", "meh", 2, 0, ""),
		}
		fmt.Fprint(w, buildEnvelope(t, items, "token-2"))
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	page, err := cl.FetchPage(context.Background(), fetchReq(), cl.FirstCursor(), 2)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if len(page.Reviews) != 2 {
		t.Fatalf("want 2 reviews, got %d", len(page.Reviews))
	}
	r := page.Reviews[0]
	if r.ID != "rev-1" || r.Author != "Ana" || r.Body != "great app" || r.Rating != 5 || r.ThumbsUp != 12 {
		t.Fatalf("bad mapping: %+v", r)
	}
	if r.Version != "2.4.1" {
		t.Fatalf("want version 2.4.1, got %q", r.Version)
	}
	if r.SubmittedAt == "" || r.ReplyBody != "thanks!" || r.ReplyAt == "" {
		t.Fatalf("date/reply mapping broken: %+v", r)
	}
	if page.Next == nil || page.Next.Token != "token-2" {
		t.Fatalf("want next token token-2, got %+v", page.Next)
	}
	if page.Next.Kind != domain.CursorToken {
		t.Fatalf("want token cursor, got kind %d", page.Next.Kind)
	}
}

func TestFetchPage_TokenPassedVerbatim(t *testing.T) {
	var gotBody atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotBody.Store(r.PostForm.Get("f.req"))
		fmt.Fprint(w, buildEnvelope(t, nil, ""))
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	_, err := cl.FetchPage(context.Background(), fetchReq(), domain.TokenCursor("opaque:continuation=="), 50)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	body, _ := gotBody.Load().(string)
	if !strings.Contains(body, "opaque:continuation==") {
		t.Fatalf("continuation token not forwarded verbatim: %s", body)
	}
	if !strings.Contains(body, "com.example.app") {
		t.Fatalf("app id missing from request: %s", body)
	}
}

func TestFetchPage_NoTokenMeansExhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, buildEnvelope(t, []any{reviewItem("rev-9", "Cy", "last one", 4, 1, "")}, ""))
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	page, err := cl.FetchPage(context.Background(), fetchReq(), cl.FirstCursor(), 200)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if page.Next != nil {
		t.Fatalf("expected absent cursor, got %+v", page.Next)
	}
}

func TestFetchPage_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			fmt.Fprint(w, buildEnvelope(t, nil, ""))
		}
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cl.FetchPage(ctx, fetchReq(), cl.FirstCursor(), 10); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestFetchPage_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	if _, err := cl.FetchPage(context.Background(), fetchReq(), cl.FirstCursor(), 10); err == nil {
		t.Fatalf("expected error for 400")
	}
}

const listingHTML = `<!doctype html><html><body>
<h1 itemprop="name"><span>Example App</span></h1>
<a href="/store/apps/dev?id=123">Example Devs</a>
<a itemprop="genre" href="/store/apps/category/TOOLS">Tools</a>
<div itemprop="starRating"><div role="img" aria-label="Rated 4.5 stars out of five stars"></div></div>
</body></html>`

func TestDetails_ScrapesListing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "com.example.app" {
			t.Errorf("want id=com.example.app, got %q", got)
		}
		fmt.Fprint(w, listingHTML)
	}))
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	d, err := cl.Details(context.Background(), "com.example.app", "en", "us")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Title != "Example App" || d.Developer != "Example Devs" || d.Genre != "Tools" {
		t.Fatalf("bad details: %+v", d)
	}
	if !strings.Contains(d.Score, "4.5") {
		t.Fatalf("want score containing 4.5, got %q", d.Score)
	}
}

func TestDetails_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := gplay.New(ts.URL, 100)
	if _, err := cl.Details(context.Background(), "com.gone.app", "en", "us"); err == nil {
		t.Fatalf("expected error for 404")
	}
}
