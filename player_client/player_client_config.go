package client

type EnvConfig struct {
	// e.g. http://192.168.1.20:9010
	HostAddr   string `split_words:"true" required:"true"`
	RoomCode   string `split_words:"true" required:"true"`
	PlayerName string `split_words:"true" required:"true"`
	LogLevel   string `split_words:"true" default:"info"`

	// Match summaries go to the log file only when RedisAddr is empty.
	RedisAddr  string `split_words:"true"`
	RedisQueue string `split_words:"true" default:"unolink_match_summaries"`
}
