package apollo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Article is a content unit submitted for summarization or clustering.
type Article struct {
	ID       string     `json:"id"`
	Headline string     `json:"headline,omitempty"`
	Content  string     `json:"content"`
	URL      string     `json:"url,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Abstract []string   `json:"abstract,omitempty"`
}

// ArticleRef references an article either by identity alone or with its full content.
// On the wire a bare identity is a JSON string and a full article is an object.
// A JSON null decodes to the zero reference, which has no identity.
type ArticleRef struct {
	id      string
	article *Article
}

// ByIdentity references an article the service already knows by its id.
func ByIdentity(id string) ArticleRef {
	return ArticleRef{id: id}
}

// Full references an article by value.
func Full(a Article) ArticleRef {
	return ArticleRef{id: a.ID, article: &a}
}

// ID projects the reference onto its identity.
func (r ArticleRef) ID() string {
	if r.article != nil {
		return r.article.ID
	}
	return r.id
}

// Article returns the referenced article when the reference carries full content.
func (r ArticleRef) Article() (Article, bool) {
	if r.article == nil {
		return Article{}, false
	}
	return *r.article, true
}

// IsZero reports whether the reference carries neither an identity nor an article.
func (r ArticleRef) IsZero() bool {
	return r.article == nil && r.id == ""
}

func (r ArticleRef) MarshalJSON() ([]byte, error) {
	if r.article != nil {
		return json.Marshal(r.article)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

func (r *ArticleRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty article reference")
	}

	switch data[0] {
	case 'n':
		if !bytes.Equal(data, []byte("null")) {
			return fmt.Errorf("article reference must be a string or an object, got %s", string(data))
		}
		*r = ArticleRef{}
		return nil
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ByIdentity(id)
		return nil
	case '{':
		var a Article
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*r = Full(a)
		return nil
	default:
		return fmt.Errorf("article reference must be a string or an object, got %s", string(data))
	}
}

// ClusteringResultItem is one previously clustered article with the ids of the
// articles already known to be related to it.
type ClusteringResultItem struct {
	Article *Article `json:"article"`
	Related []string `json:"related"`
}

// Language is the processing language of the clustering service.
type Language string

const (
	LanguageEN Language = "en"
	LanguageDE Language = "de"
)

func (l Language) valid() bool {
	return l == LanguageEN || l == LanguageDE
}

// ContinuousClusteringResponse is the merged clustering state returned by the service.
// InvalidArticles lists inputs the service rejected or could not place; it is passed
// through as received.
type ContinuousClusteringResponse struct {
	NewArticles     []ArticleRef           `json:"newArticles"`
	Result          []ClusteringResultItem `json:"result"`
	InvalidArticles []ArticleRef           `json:"invalidArticles"`
}

type continuousClusteringRequest struct {
	NewArticles []ArticleRef           `json:"newArticles"`
	Result      []ClusteringResultItem `json:"result"`
}

// AbstractOptions tunes a single autoabstract call.
type AbstractOptions struct {
	// MaxCharacters bounds the abstract length. Zero means DefaultMaxCharacters.
	MaxCharacters int
	// MaxSentences bounds the abstract by sentence count. When set, MaxCharacters
	// is not sent at all.
	MaxSentences int
	Keywords     []string
	Debug        bool
}

// AutoAbstractResponse is the summary produced by the service.
type AutoAbstractResponse struct {
	Sentences         []string        `json:"sentences"`
	DetectedLanguage  string          `json:"detectedLanguage,omitempty"`
	ProcessedLanguage string          `json:"processedLanguage,omitempty"`
	Input             json.RawMessage `json:"input,omitempty"`
	Type              string          `json:"type"`
	URL               string          `json:"url"`
}

type autoAbstractRequest struct {
	Headline      string `json:"headline,omitempty"`
	Text          string `json:"text,omitempty"`
	URL           string `json:"url,omitempty"`
	MaxCharacters int    `json:"maxCharacters,omitempty"`
	MaxSentences  int    `json:"maxSentences,omitempty"`
	Keywords      string `json:"keywords"`
	Debug         bool   `json:"debug"`
}

// ClusteringArticle is the record shape accepted by the batch clustering endpoint.
type ClusteringArticle struct {
	Identifier string     `json:"identifier"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	URL        string     `json:"url,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

// ClusteringOptions tunes a batch clustering call.
type ClusteringOptions struct {
	// Threshold defaults to DefaultThreshold when nil.
	Threshold *float64
	// Language defaults to LanguageDE when empty.
	Language Language
}

// ClusteringResponse holds the clusters computed by the service. Each cluster is an
// ordered subset of the submitted articles; an article may appear in no cluster.
type ClusteringResponse struct {
	Status  int                   `json:"status"`
	Message string                `json:"message"`
	Data    [][]ClusteringArticle `json:"data"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
