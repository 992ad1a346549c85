package config

// RequiredSentinel marks identity keys that must be filled in by the
// operator before the bot can start.
const RequiredSentinel = "REQUIRED"

// DefaultDocument returns the compiled-in base document. Every optional key
// has a value here, so the cascade always terminates. Identity keys carry
// the REQUIRED sentinel and fail validation until replaced.
func DefaultDocument() *Document {
	return &Document{
		Bot: BotConfig{
			QQNo:         RequiredSentinel,
			AdminQQ:      RequiredSentinel,
			AutoConfirm:  false,
			CQHTTPURL:    "http://127.0.0.1:5700",
			ImagePath:    "./data/images",
			VoicePath:    "./data/voices",
			Voice:        "zh-CN-YunxiNeural",
			MaxLength:    2000,
			BotName:      "结衣",
			GroupKeyword: "结衣",
		},
		Gemini: GeminiConfig{
			APIKeys: []string{RequiredSentinel},
			Model:   "gemini-1.5-pro",
			SafetySettings: map[string]string{
				"HARM_CATEGORY_HATE_SPEECH":       "BLOCK_NONE",
				"HARM_CATEGORY_SEXUALLY_EXPLICIT": "BLOCK_NONE",
				"HARM_CATEGORY_DANGEROUS_CONTENT": "BLOCK_NONE",
				"HARM_CATEGORY_HARASSMENT":        "BLOCK_NONE",
			},
			GenerationConfig: GenerationConfig{
				TopP:            1,
				TopK:            1,
				Temperature:     0.7,
				MaxOutputTokens: 2000,
			},
			SystemPrompt: "你是一只超级傲娇的猫娘，名字是结衣。说话的时候喜欢带喵~",
		},
		Log: LogConfig{
			Level:    "INFO",
			FilePath: "./logs/app.log",
		},
		Settings: Settings{
			EnablePersonalityRetrain: BoolPtr(false),
			EnableHistoryEdit:        BoolPtr(false),
			EnableAIChat:             BoolPtr(true),
			EnableChatCommands:       BoolPtr(true),
			EnableRandomEvents:       BoolPtr(false),
			EnableRepeatEvent:        BoolPtr(false),
			MessageRateLimit:         IntPtr(30),
		},
		RandomEvents: map[string]*EventConfig{
			"repeat": {
				ID:                "repeat",
				Name:              "随机复读",
				Description:       "随机复读群内消息",
				Enabled:           BoolPtr(false),
				Probability:       FloatPtr(0.05),
				MinInterval:       IntPtr(-1),
				SharedMinInterval: IntPtr(60),
			},
		},
		Proxy:       ProxyConfig{},
		Permissions: Permissions{Users: map[string]*PermissionEntry{}},
		Groups: map[string]*ScopeNode{
			DefaultScopeKey: {
				User: &RoleBlock{
					Settings: &Settings{MessageRateLimit: IntPtr(20)},
					RandomEvents: map[string]*EventConfig{
						"repeat": {
							Enabled:           BoolPtr(true),
							Probability:       FloatPtr(0.03),
							MinInterval:       IntPtr(-1),
							SharedMinInterval: IntPtr(60),
						},
					},
				},
				Manager: &RoleBlock{
					Settings: &Settings{MessageRateLimit: IntPtr(100)},
					RandomEvents: map[string]*EventConfig{
						"repeat": {
							Enabled:           BoolPtr(true),
							Probability:       FloatPtr(0.01),
							MinInterval:       IntPtr(-1),
							SharedMinInterval: IntPtr(30),
						},
					},
				},
				Blacklisted: &RoleBlock{
					Settings: &Settings{
						EnableAIChat:       BoolPtr(false),
						EnableChatCommands: BoolPtr(false),
						EnableRandomEvents: BoolPtr(false),
					},
				},
			},
		},
		Private: PrivateSection{
			Default: &ScopeNode{
				User: &RoleBlock{
					Settings: &Settings{MessageRateLimit: IntPtr(50)},
				},
			},
		},
		Service: ServiceConfig{
			Host:        "127.0.0.1",
			Port:        5555,
			UseReloader: false,
		},
	}
}
