package cmdcommon

import "github.com/kelseyhightower/envconfig"

// CommonConfig holds the variables shared by every binary. They are read
// without a prefix.
type CommonConfig struct {
	// Log files go here. Empty means the OS temp dir.
	LogDir string `split_words:"true"`
}

func LoadCommonConfig() (*CommonConfig, error) {
	var c CommonConfig
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	return &c, err
}
