// internal/wanikani/client.go

// Package wanikani は復習元API（WaniKani互換）の薄いクライアントです。
// コアは本パッケージが返す正規化済みの ReviewItem のみを扱い、
// ワイヤフォーマットの詳細はここに閉じ込めます
package wanikani

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client は復習元APIへのHTTPクライアント
type Client struct {
	baseURL    string
	apiKey     string
	revision   string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, revision string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		revision: revision,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- ワイヤフォーマット ---

// pages はコレクションレスポンスのページング情報。
// next_url は不透明なカーソルとして扱い、そのまま次のリクエストに使う
type pages struct {
	NextURL     *string `json:"next_url"`
	PreviousURL *string `json:"previous_url"`
	PerPage     int     `json:"per_page"`
}

type collection struct {
	Object     string          `json:"object"`
	URL        string          `json:"url"`
	Pages      pages           `json:"pages"`
	TotalCount int             `json:"total_count"`
	Data       json.RawMessage `json:"data"`
}

type resource struct {
	ID     int             `json:"id"`
	Object string          `json:"object"`
	URL    string          `json:"url"`
	Data   json.RawMessage `json:"data"`
}

// Assignment は /assignments の data 部
type Assignment struct {
	SubjectID   int    `json:"subject_id"`
	SubjectType string `json:"subject_type"`
	SRSStage    int    `json:"srs_stage"`
	AvailableAt string `json:"available_at"`
	Hidden      bool   `json:"hidden"`
}

// Subject は /subjects の data 部
type Subject struct {
	Characters      *string          `json:"characters"`
	Slug            string           `json:"slug"`
	Level           int              `json:"level"`
	MeaningMnemonic string           `json:"meaning_mnemonic"`
	Meanings        []SubjectMeaning `json:"meanings"`
	Readings        []SubjectReading `json:"readings"`
	AuxiliaryMeanings []struct {
		Meaning string `json:"meaning"`
		Type    string `json:"type"` // whitelist / blacklist
	} `json:"auxiliary_meanings"`
}

type SubjectMeaning struct {
	Meaning        string `json:"meaning"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

type SubjectReading struct {
	Reading        string `json:"reading"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

// AssignmentResource はIDと本体を束ねたもの
type AssignmentResource struct {
	ID   int
	Data Assignment
}

// SubjectResource はIDと本体を束ねたもの
type SubjectResource struct {
	ID   int
	Data Subject
}

// ReviewResult は結果送信リクエストのペイロード
type ReviewResult struct {
	Review struct {
		IncorrectMeaningAnswers int `json:"incorrect_meaning_answers"`
		IncorrectReadingAnswers int `json:"incorrect_reading_answers"`
	} `json:"review"`
}

// --- API 呼び出し ---

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Wanikani-Revision", c.revision)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wanikani request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("wanikani API returned %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// listCollection は next_url カーソルを辿って全ページの data を集めます
func (c *Client) listCollection(ctx context.Context, firstURL string) ([]resource, error) {
	var resources []resource
	next := &firstURL
	for next != nil {
		var coll collection
		if err := c.get(ctx, *next, &coll); err != nil {
			return nil, err
		}
		var page []resource
		if err := json.Unmarshal(coll.Data, &page); err != nil {
			return nil, fmt.Errorf("decode collection data: %w", err)
		}
		resources = append(resources, page...)
		next = coll.Pages.NextURL
	}
	return resources, nil
}

// ListDueAssignments は今すぐ復習可能な assignment を全ページ分取得します
func (c *Client) ListDueAssignments(ctx context.Context) ([]AssignmentResource, error) {
	u := c.baseURL + "/assignments?immediately_available_for_review=true"
	resources, err := c.listCollection(ctx, u)
	if err != nil {
		return nil, err
	}
	assignments := make([]AssignmentResource, 0, len(resources))
	for _, res := range resources {
		var a Assignment
		if err := json.Unmarshal(res.Data, &a); err != nil {
			return nil, fmt.Errorf("decode assignment %d: %w", res.ID, err)
		}
		if a.Hidden {
			continue
		}
		assignments = append(assignments, AssignmentResource{ID: res.ID, Data: a})
	}
	return assignments, nil
}

// ListSubjects は指定IDの subject を取得します
func (c *Client) ListSubjects(ctx context.Context, ids []int) ([]SubjectResource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}
	u := c.baseURL + "/subjects?ids=" + url.QueryEscape(strings.Join(idStrs, ","))
	resources, err := c.listCollection(ctx, u)
	if err != nil {
		return nil, err
	}
	subjects := make([]SubjectResource, 0, len(resources))
	for _, res := range resources {
		var s Subject
		if err := json.Unmarshal(res.Data, &s); err != nil {
			return nil, fmt.Errorf("decode subject %d: %w", res.ID, err)
		}
		subjects = append(subjects, SubjectResource{ID: res.ID, Data: s})
	}
	return subjects, nil
}

// SubmitResult はアイテム単位の最終結果を復習元APIへ送信します
func (c *Client) SubmitResult(ctx context.Context, reviewID string, incorrectMeaning, incorrectReading int) error {
	var payload ReviewResult
	payload.Review.IncorrectMeaningAnswers = incorrectMeaning
	payload.Review.IncorrectReadingAnswers = incorrectReading

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/reviews/%s", c.baseURL, url.PathEscape(reviewID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
