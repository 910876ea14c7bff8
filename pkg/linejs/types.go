package linejs

// Verdict is the script's decision for one surfaced line.
type Verdict struct {
	Text  string `json:"text"`
	Level string `json:"level"`
	Tag   string `json:"tag,omitempty"`
}

type Stats struct {
	LinesSeen    int64
	LinesKept    int64
	LinesDropped int64
	HookErrors   int64
	HookTimeouts int64
}

type Options struct {
	HookTimeout string
}
