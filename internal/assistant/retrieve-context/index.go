// internal/assistant/retrieve-context/index.go
package retrievecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"garage-assistant/internal/models"
)

const indexTablePrefix = "index:"

// ESIndexSearcher matches domain keywords against repair notes in Elasticsearch.
type ESIndexSearcher struct {
	client *elasticsearch.Client
	index  string
}

func NewESIndexSearcher(client *elasticsearch.Client, index string) *ESIndexSearcher {
	return &ESIndexSearcher{client: client, index: index}
}

func (s *ESIndexSearcher) Name() string { return indexTablePrefix + s.index }

func (s *ESIndexSearcher) Search(ctx context.Context, keywords []string, limit int) ([]models.ContextRecord, error) {
	should := make([]map[string]interface{}, 0, len(keywords))
	for _, kw := range keywords {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{"content": kw},
		})
	}
	queryBody := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	records := make([]models.ContextRecord, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		records = append(records, models.ContextRecord{
			Table: s.Name(),
			Kind:  models.RecordKindDocument,
			Name:  hit.ID,
			Row:   hit.Source,
		})
	}
	return records, nil
}
