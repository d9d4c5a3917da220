package config

const (
	defaultConfigPath  = "~/.config/oktabot/config.toml"
	defaultChannelsDir = "~/oktabot/channels"
	defaultLogDir      = "~/.local/share/oktabot/logs"
	defaultStateDir    = "~/.local/share/oktabot"
	defaultMusicDir    = "~/oktabot/music"

	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultLogMaxSizeMB  = 20
	defaultLogMaxBackups = 5
	defaultLogMaxAgeDays = 30

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-2.5-flash"
	defaultLLMTitle          = "oktabot"
	defaultLLMTemperature    = 0.7
	defaultLLMTimeoutSeconds = 120

	defaultImagesBaseURL        = "https://image.pollinations.ai/prompt"
	defaultImagesModel          = "flux"
	defaultImagesWorkers        = 2
	defaultImagesTimeoutSeconds = 180

	defaultNarrationCommand        = "espeak-ng -v {voice} -w {output} {text}"
	defaultNarrationVoice          = "en"
	defaultNarrationTimeoutSeconds = 120

	defaultUploadPrivacy  = "private"
	defaultUploadCategory = "Education"
	defaultMinVideoSizeMB = 1
	defaultMaxVideoSizeMB = 10 * 1024

	defaultMinFreeDiskMB = 2000
)

var (
	defaultMusicExtensions = []string{".mp3", ".wav", ".m4a", ".aac"}

	defaultScriptwritingCommand = "{self} stage script --config {config} --channel {channel} --topic {topic} --length {target_length} --output {script}"
	defaultDirectionCommand     = "{self} stage direct --config {config} --channel {channel} --script {script} --output {plan}"
	defaultNarrationStage       = "{self} stage narrate --config {config} --plan {plan} --output-dir {audio_dir} --voice {voice}"
	defaultImagesStage          = "{self} stage images --config {config} --plan {plan} --output-dir {image_dir}"
	defaultEditingCommand       = "oktabot-editor --plan {plan} --audio-dir {audio_dir} --image-dir {image_dir} --music-dir {music_dir} --output {video}"
	defaultUploadCommand        = "{self} stage upload --config {config} --video {video} --plan {plan}"
)

// Default returns a Config populated with built-in defaults. No channels are
// configured by default.
func Default() Config {
	return Config{
		Paths: Paths{
			ChannelsDir: defaultChannelsDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
			MusicDir:    defaultMusicDir,
		},
		Channels: map[string]Channel{},
		Stages: Stages{
			Scriptwriting: Stage{Command: defaultScriptwritingCommand, TimeoutSeconds: 300},
			Direction:     Stage{Command: defaultDirectionCommand, TimeoutSeconds: 300},
			Narration:     Stage{Command: defaultNarrationStage, TimeoutSeconds: 1800},
			Images:        Stage{Command: defaultImagesStage, TimeoutSeconds: 1800},
			Editing:       Stage{Command: defaultEditingCommand, TimeoutSeconds: 3600},
			Upload:        Stage{Command: defaultUploadCommand, TimeoutSeconds: 3600},
		},
		Retry: Retry{
			Quota:   RetryPolicy{MaxRetries: 5, BaseDelaySeconds: 60, ExponentialBackoff: true},
			Network: RetryPolicy{MaxRetries: 3, BaseDelaySeconds: 10, ExponentialBackoff: true},
			Disk:    RetryPolicy{MaxRetries: 2, BaseDelaySeconds: 5, ExponentialBackoff: false},
			System:  RetryPolicy{MaxRetries: 3, BaseDelaySeconds: 30, ExponentialBackoff: true},
		},
		RateLimits: RateLimits{
			LLM:       RateLimit{RequestsPerMinute: 15, CooldownSeconds: 4},
			Images:    RateLimit{RequestsPerMinute: 5, CooldownSeconds: 12},
			Narration: RateLimit{RequestsPerMinute: 10, CooldownSeconds: 6},
			Upload:    RateLimit{RequestsPerMinute: 2, CooldownSeconds: 30},
		},
		Assets: Assets{
			MinImageSizeKB:          1,
			MinImageWidth:           100,
			MinImageHeight:          100,
			MinAudioSizeKB:          1,
			MinAudioDurationSeconds: 0.1,
			MaxFileAgeDays:          30,
		},
		Music: Music{
			Required:   true,
			Extensions: append([]string(nil), defaultMusicExtensions...),
		},
		Integrity: Integrity{Scope: IntegrityScopeRequired},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Images: Images{
			BaseURL:        defaultImagesBaseURL,
			Model:          defaultImagesModel,
			Workers:        defaultImagesWorkers,
			TimeoutSeconds: defaultImagesTimeoutSeconds,
		},
		Narration: Narration{
			Command:        defaultNarrationCommand,
			DefaultVoice:   defaultNarrationVoice,
			TimeoutSeconds: defaultNarrationTimeoutSeconds,
		},
		Upload: Upload{
			DefaultPrivacy:  defaultUploadPrivacy,
			DefaultCategory: defaultUploadCategory,
			MinVideoSizeMB:  defaultMinVideoSizeMB,
			MaxVideoSizeMB:  defaultMaxVideoSizeMB,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      true,
			Published:      true,
			GateFailures:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		Preflight: Preflight{
			MinFreeDiskMB: defaultMinFreeDiskMB,
		},
	}
}
