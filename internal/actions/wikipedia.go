package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const DefaultWikipediaURL = "https://en.wikipedia.org"

var (
	ErrNotFound  = errors.New("no matching article")
	ErrAmbiguous = errors.New("ambiguous title")
)

// Reference looks a topic up in an encyclopedia.
type Reference interface {
	Summary(ctx context.Context, query string, sentences int) (string, error)
}

type Wikipedia struct {
	BaseURL string
	Client  *http.Client
}

func NewWikipedia(client *http.Client) *Wikipedia {
	if client == nil {
		client = http.DefaultClient
	}
	return &Wikipedia{BaseURL: DefaultWikipediaURL, Client: client}
}

// Summary resolves query to an article title and returns the first sentences
// of its lead section.
func (w *Wikipedia) Summary(ctx context.Context, query string, sentences int) (string, error) {
	title, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}

	body, err := w.get(ctx, "/api/rest_v1/page/summary/"+url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	if err != nil {
		return "", err
	}

	if gjson.GetBytes(body, "type").String() == "disambiguation" {
		return "", fmt.Errorf("%q: %w", title, ErrAmbiguous)
	}

	extract := gjson.GetBytes(body, "extract").String()
	if extract == "" {
		return "", fmt.Errorf("%q: %w", title, ErrNotFound)
	}
	return firstSentences(extract, sentences), nil
}

func (w *Wikipedia) search(ctx context.Context, query string) (string, error) {
	q := url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {"1"},
		"namespace": {"0"},
		"format":    {"json"},
	}
	body, err := w.get(ctx, "/w/api.php?"+q.Encode())
	if err != nil {
		return "", err
	}

	title := gjson.GetBytes(body, "1.0").String()
	if title == "" {
		return "", fmt.Errorf("%q: %w", query, ErrNotFound)
	}
	return title, nil
}

func (w *Wikipedia) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(w.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "jarvis/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 {
		return text
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				n--
				if n == 0 {
					return text[:i+1]
				}
			}
		}
	}
	return text
}
