package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/subfinder/api/internal/domain"
	"github.com/subfinder/api/internal/pkg/id"
	"golang.org/x/time/rate"
)

// codeValues maps the imported attribute words to their stored numeric codes.
var codeValues = map[string]int{
	"Unknown":   domain.CodeUnknown,
	"Forbidden": domain.CodeForbidden,
	"Allowed":   domain.CodeAllowed,
	"Required":  domain.CodeRequired,
	"Optional":  domain.CodeOptional,
	"Username":  domain.CodeUsername,
	"Comment":   domain.CodeComment,
	"Profile":   domain.CodeProfile,
	"No":        domain.CodeNo,
}

type catalogWriter interface {
	DeleteAll(ctx context.Context) error
	BatchPut(ctx context.Context, subs []domain.Subreddit) error
}

// Importer repopulates the subreddit catalog from the upstream API or a CSV
// seed file. It is a standalone batch job that shares no state with the
// credential flows.
type Importer struct {
	repo     catalogWriter
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	pageSize int
}

// NewImporter paces upstream requests at one per second with a small burst so
// a full reimport does not hammer the catalog provider.
func NewImporter(repo catalogWriter, client *http.Client, baseURL string) *Importer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Importer{
		repo:     repo,
		client:   client,
		baseURL:  baseURL,
		limiter:  rate.NewLimiter(rate.Limit(1), 3),
		pageSize: 250,
	}
}

type upstreamSubreddit struct {
	Name         string `json:"name"`
	Niche        string `json:"niche"`
	Subscribers  int    `json:"subscribers"`
	Title        string `json:"title"`
	Verification int    `json:"verification"`
	Selling      int    `json:"selling"`
	Watermark    int    `json:"watermark"`
	Icon         string `json:"icon"`
}

type upstreamPage struct {
	Data []upstreamSubreddit `json:"data"`
}

// Run drains the catalog and refills it page by page until the upstream
// returns an empty page.
func (i *Importer) Run(ctx context.Context) error {
	if err := i.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("drain catalog: %w", err)
	}
	total := 0
	for page := 1; ; page++ {
		if err := i.limiter.Wait(ctx); err != nil {
			return err
		}
		rows, err := i.fetchPage(ctx, page)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}
		subs := make([]domain.Subreddit, 0, len(rows))
		for _, r := range rows {
			subs = append(subs, domain.Subreddit{
				SubredditID:  id.New(),
				Name:         r.Name,
				Niche:        r.Niche,
				Subscribers:  r.Subscribers,
				Title:        r.Title,
				Verification: r.Verification,
				Selling:      r.Selling,
				Watermark:    r.Watermark,
				Icon:         r.Icon,
			})
		}
		if err := i.repo.BatchPut(ctx, subs); err != nil {
			return fmt.Errorf("store page %d: %w", page, err)
		}
		total += len(subs)
		slog.Info("imported catalog page", "page", page, "rows", len(subs))
	}
	slog.Info("catalog import finished", "total", total)
	return nil
}

func (i *Importer) fetchPage(ctx context.Context, page int) ([]upstreamSubreddit, error) {
	url := fmt.Sprintf("%s?page=%d&per_page=%d&sort_by=subscribers&sort_dir=desc", i.baseURL, page, i.pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %s", resp.Status)
	}
	var body upstreamPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// ImportCSV seeds the catalog from an exported CSV file. Columns: name,
// niche, subscribers, title, verification, selling, watermark, with the
// attribute columns carrying code words. The first row is a header.
func (i *Importer) ImportCSV(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := i.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("drain catalog: %w", err)
	}

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return err
	}
	var subs []domain.Subreddit
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		sub, ok := subredditFromRow(row)
		if !ok {
			continue
		}
		subs = append(subs, sub)
	}
	if err := i.repo.BatchPut(ctx, subs); err != nil {
		return err
	}
	slog.Info("catalog seeded from csv", "path", path, "rows", len(subs))
	return nil
}

func subredditFromRow(row []string) (domain.Subreddit, bool) {
	if len(row) < 7 || row[0] == "" {
		return domain.Subreddit{}, false
	}
	subscribers, _ := strconv.Atoi(row[2])
	return domain.Subreddit{
		SubredditID:  id.New(),
		Name:         row[0],
		Niche:        row[1],
		Subscribers:  subscribers,
		Title:        row[3],
		Verification: codeValue(row[4]),
		Selling:      codeValue(row[5]),
		Watermark:    codeValue(row[6]),
	}, true
}

func codeValue(word string) int {
	if v, ok := codeValues[word]; ok {
		return v
	}
	return domain.CodeUnknown
}
