// Package oracle calls the external NLP service that turns colloquial order
// text into structured fastener attributes. The service is a black box with
// a JSON contract and a timeout; it is never trusted to produce valid
// catalog references, downstream matching re-validates everything.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"metiz/internal"
	"metiz/internal/util"
)

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

const systemPrompt = `Ты ассистент по крепежу. Извлеки из текста заказа параметры деталей.
Верни строго JSON без пояснений. Для одной позиции — объект
{"type","subtype","standard","diameter","length","material","coating","grade","quantity","confidence"},
для нескольких — {"items":[...]} с объектами той же формы.
Неизвестные поля — null. confidence — число от 0 до 1.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Interpret asks the oracle to structure rawText. It never returns an
// error: on timeout, transport failure or unparseable output the caller
// gets the sentinel item (type=nil, confidence=0.1) so the pipeline can
// proceed with a "no usable structure" fallback.
func (c *Client) Interpret(ctx context.Context, rawText string) []internal.TokenSet {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: rawText},
		},
	})
	if err != nil {
		return Sentinel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Sentinel()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("oracle: запрос не удался: %v", err)
		return Sentinel()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		log.Printf("oracle: статус %d: %v", resp.StatusCode, err)
		return Sentinel()
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil || len(cr.Choices) == 0 {
		return Sentinel()
	}
	items, err := ParseItems(cr.Choices[0].Message.Content)
	if err != nil {
		log.Printf("oracle: ответ без валидного JSON: %v", err)
		return Sentinel()
	}
	return items
}

// Sentinel is the neutral low-confidence result used on every failure path.
func Sentinel() []internal.TokenSet {
	return []internal.TokenSet{{Confidence: 0.1}}
}

// ParseItems extracts structured items from a possibly chatty model reply:
// code fences are stripped, then the first JSON span is decoded. Accepts a
// single object, an {"items":[...]} envelope, or a bare array.
func ParseItems(reply string) ([]internal.TokenSet, error) {
	span := firstJSONSpan(stripCodeFences(reply))
	if span == "" {
		return nil, fmt.Errorf("JSON не найден в ответе")
	}

	if strings.HasPrefix(span, "[") {
		var arr []rawItem
		if err := json.Unmarshal([]byte(span), &arr); err != nil {
			return nil, err
		}
		return convertItems(arr)
	}

	var envelope struct {
		Items []rawItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err == nil && len(envelope.Items) > 0 {
		return convertItems(envelope.Items)
	}

	var single rawItem
	if err := json.Unmarshal([]byte(span), &single); err != nil {
		return nil, err
	}
	return convertItems([]rawItem{single})
}

// rawItem tolerates the oracle returning numbers where we expect strings.
type rawItem struct {
	Type       *string    `json:"type"`
	Subtype    *string    `json:"subtype"`
	Standard   *string    `json:"standard"`
	Diameter   flexString `json:"diameter"`
	Length     flexString `json:"length"`
	Material   *string    `json:"material"`
	Coating    *string    `json:"coating"`
	Grade      flexString `json:"grade"`
	Quantity   *float64   `json:"quantity"`
	Confidence *float64   `json:"confidence"`
}

type flexString struct {
	val *string
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v != "" {
			f.val = &v
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v := n.String()
	f.val = &v
	return nil
}

func convertItems(raws []rawItem) ([]internal.TokenSet, error) {
	out := make([]internal.TokenSet, 0, len(raws))
	for _, r := range raws {
		ts := internal.TokenSet{
			Type:       normPtr(r.Type),
			Subtype:    normPtr(r.Subtype),
			Standard:   normPtr(r.Standard),
			Material:   normPtr(r.Material),
			Coating:    normPtr(r.Coating),
			Quantity:   r.Quantity,
			Confidence: 0.5,
		}
		if r.Diameter.val != nil {
			ts.Diameter = util.StringPtr(util.CanonDiameter(*r.Diameter.val))
		}
		if r.Length.val != nil {
			ts.Length = util.StringPtr(util.CanonLength(*r.Length.val))
		}
		ts.Grade = r.Grade.val
		if r.Confidence != nil {
			c := *r.Confidence
			if c < 0 {
				c = 0
			}
			if c > 1 {
				c = 1
			}
			ts.Confidence = c
		}
		out = append(out, ts)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("пустой список позиций")
	}
	return out, nil
}

// normPtr lower-cases and trims a value, folding "неизвестно"/"null" to nil.
func normPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*p))
	if v == "" || v == "неизвестно" || v == "null" || v == "none" {
		return nil
	}
	return &v
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// firstJSONSpan returns the first balanced {...} or [...] region of s.
func firstJSONSpan(s string) string {
	start := -1
	var open, close rune
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			open = r
			close = '}'
			if r == '[' {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := rune(s[i])
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
