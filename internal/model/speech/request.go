package speech

// AudioInput is an uploaded recording.
type AudioInput struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename"` // extension hints the container: webm, wav, mp3 ...
}

// Empty reports whether there is no audio payload.
func (a *AudioInput) Empty() bool {
	return a == nil || len(a.Data) == 0
}
