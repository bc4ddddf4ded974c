package config

const (
	defaultDataDir    = "~/.local/share/neuroscreen"
	defaultLogDir     = "~/.local/share/neuroscreen/logs"
	defaultStagingDir = "~/.local/share/neuroscreen/staging"
	defaultModelsDir  = "~/.local/share/neuroscreen/models"

	defaultMediaBackend = "local"

	defaultTranscribeCommand = "whisper"
	defaultTranscribeModel   = "base"
	defaultTranscribeLang    = "en"
	defaultTranscribeTimeout = 300

	defaultWorkers            = 2
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultJobTimeout         = 900
	defaultRetryBackoff       = 30
	defaultMaxRetries         = 2
	defaultHeartbeatInterval  = 15

	defaultNotifyTimeout = 10

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			StagingDir: defaultStagingDir,
		},
		MediaStore: MediaStore{
			Backend: defaultMediaBackend,
		},
		Models: Models{
			Dir:             defaultModelsDir,
			VoiceClassifier: "voice_fused.onnx",
			AudioEmbedding:  "audio_embedding.onnx",
			TextEmbedding:   "text_embedding.onnx",
			TextTokenizer:   "text_tokenizer.json",
			MRIStage1:       "mri_cn_vs_impaired.onnx",
			MRIStage2:       "mri_ad_vs_mci.onnx",
			MRIStage3:       "mri_emci_vs_lmci.onnx",
		},
		Transcription: Transcription{
			Command:        defaultTranscribeCommand,
			Model:          defaultTranscribeModel,
			Language:       defaultTranscribeLang,
			TimeoutSeconds: defaultTranscribeTimeout,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			JobTimeout:         defaultJobTimeout,
			RetryBackoff:       defaultRetryBackoff,
			MaxRetries:         defaultMaxRetries,
			HeartbeatInterval:  defaultHeartbeatInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Assessments:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
