package admin

type EnvConfig struct {
	ListenHost   string `split_words:"true" default:"0.0.0.0"`
	ListenPort   int    `split_words:"true" default:"9010"`
	RoomName     string `split_words:"true" default:"unolink"`
	PlayerName   string `split_words:"true" required:"true"`
	TotalPlayers int    `split_words:"true" default:"4"`
	Offline      bool   `split_words:"true" default:"false"`

	BotDelayMinMsecs int    `split_words:"true" default:"1000"`
	BotDelayMaxMsecs int    `split_words:"true" default:"1500"`
	UnoBannerMsecs   int    `split_words:"true" default:"2000"`
	UnoPolicy        string `split_words:"true" default:"off"`

	// Match summaries go to this Redis list when set, and to the log always.
	RedisAddr  string `split_words:"true"`
	RedisQueue string `split_words:"true" default:"unolink_match_summaries"`

	LogLevel string `split_words:"true" default:"info"`

	// Testing, debugging related options
	DebugStartingHandConfigJSON string `split_words:"true"`
}
