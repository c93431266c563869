package definition

// Document is the wire shape of an automaton definition file (JSON or YAML).
// Field names follow the camelCase keys produced by the definition generator.
type Document struct {
	ServiceCode   string          `json:"serviceCode" mapstructure:"serviceCode"`
	ServiceName   string          `json:"serviceName" mapstructure:"serviceName"`
	USSDCode      string          `json:"ussdCode" mapstructure:"ussdCode"`
	Version       string          `json:"version" mapstructure:"version"`
	Description   string          `json:"description" mapstructure:"description"`
	APIConfig     APIConfigDoc    `json:"apiConfig" mapstructure:"apiConfig"`
	SessionConfig SessionConfigDoc `json:"sessionConfig" mapstructure:"sessionConfig"`
	States        []StateDoc      `json:"states" mapstructure:"states"`

	// Unused lists keys present in the source that no field consumed.
	Unused []string `json:"-" mapstructure:"-"`
}

type APIConfigDoc struct {
	BaseURL        string            `json:"baseUrl" mapstructure:"baseUrl"`
	Timeout        int               `json:"timeout" mapstructure:"timeout"`
	RetryAttempts  *int              `json:"retryAttempts" mapstructure:"retryAttempts"`
	Authentication AuthenticationDoc `json:"authentication" mapstructure:"authentication"`
}

type AuthenticationDoc struct {
	Type       string `json:"type" mapstructure:"type"`
	Token      string `json:"token" mapstructure:"token"`
	HeaderName string `json:"headerName" mapstructure:"headerName"`
	APIKey     string `json:"apiKey" mapstructure:"apiKey"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
}

type SessionConfigDoc struct {
	TimeoutSeconds       int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	MaxInactivitySeconds int `json:"maxInactivitySeconds" mapstructure:"maxInactivitySeconds"`
}

type StateDoc struct {
	ID          string          `json:"id" mapstructure:"id"`
	Name        string          `json:"name" mapstructure:"name"`
	Type        string          `json:"type" mapstructure:"type"`
	IsInitial   bool            `json:"isInitial" mapstructure:"isInitial"`
	Message     string          `json:"message" mapstructure:"message"`
	Transitions []TransitionDoc `json:"transitions" mapstructure:"transitions"`
	StoreAs     string          `json:"storeAs" mapstructure:"storeAs"`
	Validation  *ValidationDoc  `json:"validation" mapstructure:"validation"`
	Action      *ActionDoc      `json:"action" mapstructure:"action"`
}

type TransitionDoc struct {
	Input     string `json:"input" mapstructure:"input"`
	Condition string `json:"condition" mapstructure:"condition"`
	NextState string `json:"nextState" mapstructure:"nextState"`
	Message   string `json:"message" mapstructure:"message"`
}

type ValidationDoc struct {
	Type      string `json:"type" mapstructure:"type"`
	MinLength *int   `json:"minLength" mapstructure:"minLength"`
	MaxLength *int   `json:"maxLength" mapstructure:"maxLength"`
}

type ActionDoc struct {
	Type          string            `json:"type" mapstructure:"type"`
	Method        string            `json:"method" mapstructure:"method"`
	Endpoint      string            `json:"endpoint" mapstructure:"endpoint"`
	Headers       map[string]string `json:"headers" mapstructure:"headers"`
	Body          any               `json:"body" mapstructure:"body"`
	Timeout       int               `json:"timeout" mapstructure:"timeout"`
	RetryAttempts *int              `json:"retryAttempts" mapstructure:"retryAttempts"`
	OnSuccess     *ResultDoc        `json:"onSuccess" mapstructure:"onSuccess"`
	OnError       *ResultDoc        `json:"onError" mapstructure:"onError"`
}

type ResultDoc struct {
	ResponseMapping map[string]string `json:"responseMapping" mapstructure:"responseMapping"`
	Message         string            `json:"message" mapstructure:"message"`
}
