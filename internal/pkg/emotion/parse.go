package emotion

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/airenas/soulwhisper/internal/pkg/api"
)

type parseFunc func(string) (*api.Emotion, bool)

var parsers = []parseFunc{parseJSON, parseText}

var (
	typeRegexp        = regexp.MustCompile(`(happy|sad|angry)`)
	intensityRegexp   = regexp.MustCompile(`intensity.*?(\d+)`)
	outOfTenRegexp    = regexp.MustCompile(`(\d+)/10`)
	codeFenceReplacer = strings.NewReplacer("```json", "", "```", "")
)

// Parse extracts emotion from a model answer, never fails
func Parse(s string) *api.Emotion {
	for _, p := range parsers {
		if res, ok := p(s); ok {
			return res
		}
	}
	return api.DefaultEmotion()
}

// ClampIntensity forces v into [1, 10]
func ClampIntensity(v int) int {
	if v < api.MinIntensity {
		return api.MinIntensity
	}
	if v > api.MaxIntensity {
		return api.MaxIntensity
	}
	return v
}

func parseJSON(s string) (*api.Emotion, bool) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(codeFenceReplacer.Replace(s))), &data); err != nil {
		return nil, false
	}
	et, ok := data["emotion_type"]
	if !ok {
		return nil, false
	}
	ei, ok := data["emotion_intensity"]
	if !ok {
		return nil, false
	}
	intensity, ok := toInt(ei)
	if !ok {
		return nil, false
	}
	res := &api.Emotion{Type: api.Neutral, Intensity: ClampIntensity(intensity)}
	if ets, ok := et.(string); ok && api.EmotionType(ets).Supported() {
		res.Type = api.EmotionType(ets)
	}
	return res, true
}

func toInt(v interface{}) (int, bool) {
	switch tv := v.(type) {
	case float64:
		return clampFloat(tv), true
	case string:
		return atoi(strings.TrimSpace(tv))
	}
	return 0, false
}

// clampFloat clamps before conversion, int(f) is undefined out of int range
func clampFloat(f float64) int {
	if f > api.MaxIntensity {
		return api.MaxIntensity
	}
	if f < api.MinIntensity {
		return api.MinIntensity
	}
	return int(f)
}

// atoi returns a clamped value for numbers out of int range
func atoi(s string) (int, bool) {
	res, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return api.MinIntensity, true
		}
		return api.MaxIntensity, true
	}
	return res, err == nil
}

func parseText(s string) (*api.Emotion, bool) {
	ls := strings.ToLower(s)
	res := api.DefaultEmotion()
	found := false
	if m := typeRegexp.FindStringSubmatch(ls); m != nil {
		res.Type = api.EmotionType(m[1])
		found = true
	}
	m := intensityRegexp.FindStringSubmatch(ls)
	if m == nil {
		m = outOfTenRegexp.FindStringSubmatch(ls)
	}
	if m != nil {
		if v, ok := atoi(m[1]); ok {
			res.Intensity = ClampIntensity(v)
			found = true
		}
	}
	return res, found
}
