package analytics

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	prosetokenize "github.com/jdkato/prose/tokenize"
)

const (
	// DefaultDays of history analyzed
	DefaultDays = 7

	topKeywords = 10
)

// neutral has no label, it is reported as is
var labels = map[string]string{
	"happy":   "Happy",
	"sad":     "Sad",
	"angry":   "Angry",
	"calm":    "Calm",
	"anxious": "Anxious",
	"excited": "Excited",
	"tired":   "Tired",
}

//go:embed stopwords.txt
var stopwordsData string

var stopwords = func() map[string]bool {
	res := map[string]bool{}
	for _, w := range strings.Fields(stopwordsData) {
		res[w] = true
	}
	return res
}()

var tokenizer = prosetokenize.NewTreebankWordTokenizer()

// DiaryLoader provides user diaries
type DiaryLoader interface {
	LoadDiaries(ctx context.Context, userID string, since time.Time) ([]*persistence.Diary, error)
}

// Report is the analytics of recent diaries
type Report struct {
	Emotions map[string]float64 `json:"emotions"`
	Keywords []string           `json:"keywords"`
}

// Analyzer builds reports of the user diaries
type Analyzer struct {
	loader DiaryLoader
	now    func() time.Time
}

// NewAnalyzer creates analyzer
func NewAnalyzer(loader DiaryLoader) (*Analyzer, error) {
	if loader == nil {
		return nil, fmt.Errorf("no diary loader")
	}
	return &Analyzer{loader: loader, now: time.Now}, nil
}

// Analyze returns emotion distribution and keywords of the last days
func (a *Analyzer) Analyze(ctx context.Context, userID string, days int) (*Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, api.NewValidationError("no user")
	}
	if days <= 0 {
		days = DefaultDays
	}
	diaries, err := a.loader.LoadDiaries(ctx, userID, a.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("can't load diaries: %w", err)
	}
	goapp.Log.Debug().Str("user", goapp.Sanitize(userID)).Int("count", len(diaries)).Msg("analyze")
	if len(diaries) == 0 {
		return &Report{Emotions: map[string]float64{}, Keywords: []string{}}, nil
	}
	return &Report{Emotions: Distribution(diaries), Keywords: Keywords(diaries, topKeywords)}, nil
}

// Distribution returns emotion percentages rounded to one decimal
func Distribution(diaries []*persistence.Diary) map[string]float64 {
	counts := map[string]int{}
	for _, d := range diaries {
		m := d.Mood
		if m == "" {
			m = string(api.Neutral)
		}
		counts[m]++
	}
	res := make(map[string]float64, len(counts))
	for k, v := range counts {
		l, ok := labels[k]
		if !ok {
			l = k
		}
		res[l] = math.Round(float64(v)*1000/float64(len(diaries))) / 10
	}
	return res
}

// Keywords returns the most frequent words, ties keep first seen order
func Keywords(diaries []*persistence.Diary, n int) []string {
	freq := map[string]int{}
	var order []string
	for _, d := range diaries {
		for _, w := range tokenize(d.Content) {
			if _, ok := freq[w]; !ok {
				order = append(order, w)
			}
			freq[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// tokenize splits text into Treebank tokens, clitics like 's and n't become
// separate tokens and are dropped by the filter
func tokenize(s string) []string {
	words := tokenizer.Tokenize(strings.ToLower(s))
	res := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimRightFunc(w, unicode.IsPunct)
		if len([]rune(w)) <= 2 || !alnum(w) || stopwords[w] {
			continue
		}
		res = append(res, w)
	}
	return res
}

func alnum(s string) bool {
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
