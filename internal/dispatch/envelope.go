package dispatch

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which job an envelope requests.
type Kind string

const (
	KindCrawl         Kind = "crawl"
	KindBenchmark     Kind = "benchmark"
	KindCategoryMatch Kind = "category_match"
)

// CrawlCommand asks for one run of the named store crawler. URLs nil
// requests a full replace of the crawler's catalog; a non-nil list
// patches exactly those product pages.
type CrawlCommand struct {
	Selector string
	URLs     []string
}

// Envelope is one control message from the queue. Exactly one field is
// set after a successful decode.
//
// The wire format is a single-key JSON object whose key names the
// variant and whose value carries the payload:
//
//	{"Crawler": {"Selector": "rusteaco"}}
//	{"Crawler": {"SelectorProducts": ["rusteaco", ["https://..."]]}}
//	{"Benchmark": 42}
//	{"CategoryMatch": 7}
type Envelope struct {
	Crawler       *CrawlCommand
	Benchmark     *int
	CategoryMatch *int
}

// Kind reports the variant carried by the envelope, or "" for a zero
// envelope.
func (e *Envelope) Kind() Kind {
	switch {
	case e.Crawler != nil:
		return KindCrawl
	case e.Benchmark != nil:
		return KindBenchmark
	case e.CategoryMatch != nil:
		return KindCategoryMatch
	}
	return ""
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	*e = Envelope{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("envelope must carry exactly one variant, got %d", len(raw))
	}
	for tag, payload := range raw {
		switch tag {
		case "Crawler":
			var cmd CrawlCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return fmt.Errorf("decode Crawler: %w", err)
			}
			e.Crawler = &cmd
		case "Benchmark":
			var id int
			if err := json.Unmarshal(payload, &id); err != nil {
				return fmt.Errorf("decode Benchmark: %w", err)
			}
			e.Benchmark = &id
		case "CategoryMatch":
			var id int
			if err := json.Unmarshal(payload, &id); err != nil {
				return fmt.Errorf("decode CategoryMatch: %w", err)
			}
			e.CategoryMatch = &id
		default:
			return fmt.Errorf("unknown envelope variant %q", tag)
		}
	}
	return nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	switch {
	case e.Crawler != nil:
		return json.Marshal(map[string]*CrawlCommand{"Crawler": e.Crawler})
	case e.Benchmark != nil:
		return json.Marshal(map[string]int{"Benchmark": *e.Benchmark})
	case e.CategoryMatch != nil:
		return json.Marshal(map[string]int{"CategoryMatch": *e.CategoryMatch})
	}
	return nil, fmt.Errorf("envelope carries no variant")
}

func (c *CrawlCommand) UnmarshalJSON(data []byte) error {
	*c = CrawlCommand{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("crawler command must carry exactly one variant, got %d", len(raw))
	}
	for tag, payload := range raw {
		switch tag {
		case "Selector":
			if err := json.Unmarshal(payload, &c.Selector); err != nil {
				return fmt.Errorf("decode Selector: %w", err)
			}
		case "SelectorProducts":
			var pair []json.RawMessage
			if err := json.Unmarshal(payload, &pair); err != nil {
				return fmt.Errorf("decode SelectorProducts: %w", err)
			}
			if len(pair) != 2 {
				return fmt.Errorf("SelectorProducts expects [selector, urls], got %d elements", len(pair))
			}
			if err := json.Unmarshal(pair[0], &c.Selector); err != nil {
				return fmt.Errorf("decode SelectorProducts selector: %w", err)
			}
			if err := json.Unmarshal(pair[1], &c.URLs); err != nil {
				return fmt.Errorf("decode SelectorProducts urls: %w", err)
			}
			if c.URLs == nil {
				c.URLs = []string{}
			}
		default:
			return fmt.Errorf("unknown crawler command variant %q", tag)
		}
	}
	return nil
}

func (c CrawlCommand) MarshalJSON() ([]byte, error) {
	if c.URLs == nil {
		return json.Marshal(map[string]string{"Selector": c.Selector})
	}
	return json.Marshal(map[string][]any{
		"SelectorProducts": {c.Selector, c.URLs},
	})
}
