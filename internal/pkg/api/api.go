package api

import "io"

// EmotionType is a coarse emotion label
type EmotionType string

const (
	// Happy emotion
	Happy EmotionType = "happy"
	// Sad emotion
	Sad EmotionType = "sad"
	// Angry emotion
	Angry EmotionType = "angry"
	// Neutral is used when nothing else can be detected
	Neutral EmotionType = "neutral"
)

const (
	// MinIntensity of an emotion
	MinIntensity = 1
	// MaxIntensity of an emotion
	MaxIntensity = 10
	// DefaultIntensity used with the fallback emotion
	DefaultIntensity = 5
)

// Supported returns true for the labels a detector is allowed to return
func (e EmotionType) Supported() bool {
	return e == Happy || e == Sad || e == Angry
}

// AudioUpload is an audio file received from a client
type AudioUpload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Transcription is the output of speech recognition
type Transcription struct {
	Text string `json:"text"`
}

// Emotion is the output of emotion detection
type Emotion struct {
	Type      EmotionType `json:"emotion_type"`
	Intensity int         `json:"emotion_intensity"`
}

// DefaultEmotion returns the fallback emotion
func DefaultEmotion() *Emotion {
	return &Emotion{Type: Neutral, Intensity: DefaultIntensity}
}

// Result is the merged outcome of the audio pipeline
type Result struct {
	Text      string      `json:"text"`
	Emotion   EmotionType `json:"emotion_type"`
	Intensity int         `json:"emotion_intensity"`
}
