// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scopus is a client for the Scopus search and abstract-retrieval
// APIs. All calls carry the active key from the session's KeyRing; an HTTP
// 429 rotates to the next key and retries after a fixed delay, up to a
// bounded attempt count.
package scopus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-collector/pkg/types"
)

// Endpoint bases. Declared as vars so tests can substitute an httptest
// server.
var (
	searchBase   = "https://api.elsevier.com/content/search/scopus"
	abstractBase = "https://api.elsevier.com/content/abstract/scopus_id/"
)

// ErrExhausted is returned when a call runs out of retries without a
// usable response. Callers treat it as "no data this attempt": a record
// is skipped, or a page loop ends.
var ErrExhausted = errors.New("retry budget exhausted")

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	defaultRPS        = 5.0
	scopusIDPrefix    = "SCOPUS_ID:"
)

// Client calls the Scopus APIs with key rotation and request pacing.
type Client struct {
	httpClient *http.Client
	ring       *KeyRing
	limiter    *rate.Limiter
	userAgent  string
	retryDelay time.Duration
	maxRetries int

	// sleep is time.Sleep in production; tests stub it out.
	sleep func(time.Duration)
}

// NewClient builds a client around ring using the harvest HTTP settings.
func NewClient(ring *KeyRing, cfg types.HarvestConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		ring:       ring,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		userAgent:  cfg.UserAgent,
		retryDelay: delay,
		maxRetries: retries,
		sleep:      time.Sleep,
	}
}

// Ring exposes the client's key ring so the session can reload it at
// pause/resume.
func (c *Client) Ring() *KeyRing {
	return c.ring
}

// SearchPage requests one page of search results and returns the Scopus
// IDs of its entries. An empty slice means the result set is exhausted.
func (c *Client) SearchPage(ctx context.Context, query string, offset, count int) ([]string, error) {
	params := url.Values{
		"query": {query},
		"count": {strconv.Itoa(count)},
		"start": {strconv.Itoa(offset)},
	}

	var sr searchResponse
	err := c.getJSON(ctx, searchBase+"?"+params.Encode(), func(data []byte) error {
		sr = searchResponse{}
		if err := json.Unmarshal(data, &sr); err != nil {
			return fmt.Errorf("parsing search response: %w", err)
		}
		if sr.SearchResults == nil {
			return fmt.Errorf("no search-results in response")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(sr.SearchResults.Entries))
	for _, e := range sr.SearchResults.Entries {
		if id := strings.TrimPrefix(e.Identifier, scopusIDPrefix); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FetchRecord retrieves full metadata for one article, abstract included.
func (c *Client) FetchRecord(ctx context.Context, id string) (*types.Record, error) {
	var ar abstractResponse
	err := c.getJSON(ctx, abstractBase+url.PathEscape(id), func(data []byte) error {
		ar = abstractResponse{}
		if err := json.Unmarshal(data, &ar); err != nil {
			return fmt.Errorf("parsing abstract response: %w", err)
		}
		if ar.Response == nil {
			return fmt.Errorf("no abstracts-retrieval-response for %s", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	core := ar.Response.CoreData
	rec := &types.Record{
		ScopusID:        id,
		Title:           orNA(core.Title),
		Abstract:        orNA(core.Description),
		Authors:         []string{},
		PublicationDate: orNA(core.CoverDate),
		DOI:             orNA(core.DOI),
		Keywords:        keywordString(core.Keywords),
		Source:          orNA(core.PublicationName),
		Citations:       []types.Citation{},
	}
	if n, convErr := strconv.Atoi(core.CitedByCount); convErr == nil {
		rec.CitedByCount = n
	}
	if ar.Response.Authors != nil {
		for _, a := range ar.Response.Authors.Author {
			rec.Authors = append(rec.Authors, orNA(a.IndexedName))
		}
	}
	rec.AffiliationName, rec.AffiliationCountry = firstAffiliation(ar.Response.Affiliation)
	return rec, nil
}

// FetchCitations retrieves citing-article summaries via a REF(id) search.
func (c *Client) FetchCitations(ctx context.Context, id string, count int) ([]types.Citation, error) {
	params := url.Values{
		"query": {fmt.Sprintf("REF(%s)", id)},
		"count": {strconv.Itoa(count)},
		"start": {"0"},
		"view":  {"STANDARD"},
	}

	var sr searchResponse
	err := c.getJSON(ctx, searchBase+"?"+params.Encode(), func(data []byte) error {
		sr = searchResponse{}
		if err := json.Unmarshal(data, &sr); err != nil {
			return fmt.Errorf("parsing citation search response: %w", err)
		}
		if sr.SearchResults == nil {
			return fmt.Errorf("no search-results for citations of %s", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	citations := make([]types.Citation, 0, len(sr.SearchResults.Entries))
	for _, e := range sr.SearchResults.Entries {
		_, country := firstAffiliation(e.Affiliation)
		citations = append(citations, types.Citation{
			CitingArticleScopusID:    strings.TrimPrefix(e.Identifier, scopusIDPrefix),
			CitingArticleURL:         orNA(e.URL),
			CitedDate:                orNA(e.CoverDate),
			CitingCitationCount:      orNA(e.CitedByCount),
			CitingAffiliationCountry: country,
		})
	}
	return citations, nil
}

// getJSON performs a paced GET with the active key and hands the body to
// decode. A 429 response, a parse failure, or a missing expected key all
// count as a failed attempt: the ring rotates, the client sleeps the fixed
// retry delay, and the call is retried. A non-200, non-429 status is fatal
// immediately. Exhausting attempts wraps ErrExhausted.
func (c *Client) getJSON(ctx context.Context, reqURL string, decode func([]byte) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.ring.Rotate()
			c.sleep(c.retryDelay)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("X-ELS-APIKey", c.ring.Current())
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("Scopus API request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP 429 (key %d/%d)", c.ring.next+1, c.ring.Len())
			continue
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return fmt.Errorf("Scopus API returned HTTP %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}
		if err := decode(data); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, c.maxRetries+1, lastErr)
}

// orNA substitutes the corpus N/A sentinel for empty strings.
func orNA(s string) string {
	if s == "" {
		return types.NotAvailable
	}
	return s
}

// Scopus API JSON structures.
type searchResponse struct {
	SearchResults *searchResults `json:"search-results"`
}

type searchResults struct {
	Entries []searchEntry `json:"entry"`
}

type searchEntry struct {
	Identifier   string          `json:"dc:identifier"`
	URL          string          `json:"prism:url"`
	CoverDate    string          `json:"prism:coverDate"`
	CitedByCount string          `json:"citedby-count"`
	Affiliation  json.RawMessage `json:"affiliation"`
}

type abstractResponse struct {
	Response *abstractsRetrieval `json:"abstracts-retrieval-response"`
}

type abstractsRetrieval struct {
	CoreData    coreData        `json:"coredata"`
	Authors     *authorsSection `json:"authors"`
	Affiliation json.RawMessage `json:"affiliation"`
}

type coreData struct {
	Title           string          `json:"dc:title"`
	Description     string          `json:"dc:description"`
	CoverDate       string          `json:"prism:coverDate"`
	DOI             string          `json:"prism:doi"`
	Keywords        json.RawMessage `json:"authkeywords"`
	CitedByCount    string          `json:"citedby-count"`
	PublicationName string          `json:"prism:publicationName"`
}

type authorsSection struct {
	Author []author `json:"author"`
}

type author struct {
	IndexedName string `json:"ce:indexed-name"`
}

type affiliationInfo struct {
	Name    string `json:"affiliation-name"`
	Country string `json:"affiliation-country"`
}

// firstAffiliation extracts the first affiliation's name and country. The
// API returns either a single object or an array here.
func firstAffiliation(raw json.RawMessage) (name, country string) {
	name, country = types.NotAvailable, types.NotAvailable
	if len(raw) == 0 {
		return
	}
	var list []affiliationInfo
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return orNA(list[0].Name), orNA(list[0].Country)
		}
		return
	}
	var single affiliationInfo
	if err := json.Unmarshal(raw, &single); err == nil {
		return orNA(single.Name), orNA(single.Country)
	}
	return
}

// keywordString flattens the authkeywords field, which is either a plain
// string or an object holding an author-keyword list.
func keywordString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return types.NotAvailable
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return orNA(s)
	}
	var obj struct {
		AuthorKeyword []struct {
			Value string `json:"$"`
		} `json:"author-keyword"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj.AuthorKeyword) > 0 {
		words := make([]string, 0, len(obj.AuthorKeyword))
		for _, kw := range obj.AuthorKeyword {
			if kw.Value != "" {
				words = append(words, kw.Value)
			}
		}
		if len(words) > 0 {
			return strings.Join(words, " | ")
		}
	}
	return types.NotAvailable
}
