package infobip

// Vendor wire models. Field names follow the vendor JSON schema.

type destination struct {
	To        string `json:"to"`
	MessageID string `json:"messageId,omitempty"`
}

type messageStatus struct {
	GroupID     int    `json:"groupId"`
	GroupName   string `json:"groupName,omitempty"`
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Action      string `json:"action,omitempty"`
}

type sentMessage struct {
	To        string         `json:"to"`
	MessageID string         `json:"messageId"`
	Status    *messageStatus `json:"status"`
}

type sendResponse struct {
	BulkID   string        `json:"bulkId"`
	Messages []sentMessage `json:"messages"`
}

type smsRequest struct {
	BulkID   string       `json:"bulkId,omitempty"`
	Messages []smsMessage `json:"messages"`
}

type smsMessage struct {
	Destinations   []destination `json:"destinations"`
	From           string        `json:"from,omitempty"`
	Text           string        `json:"text"`
	Flash          bool          `json:"flash,omitempty"`
	ValidityPeriod int           `json:"validityPeriod,omitempty"`
	EntityID       string        `json:"entityId,omitempty"`
	ApplicationID  string        `json:"applicationId,omitempty"`
	NotifyURL      string        `json:"notifyUrl,omitempty"`
	CallbackData   string        `json:"callbackData,omitempty"`
}

type voiceRequest struct {
	BulkID   string         `json:"bulkId,omitempty"`
	Messages []voiceMessage `json:"messages"`
}

type voiceTypeDTO struct {
	Gender string `json:"gender,omitempty"`
	Name   string `json:"name,omitempty"`
}

type voiceMessage struct {
	Destinations         []destination `json:"destinations"`
	From                 string        `json:"from"`
	Text                 string        `json:"text,omitempty"`
	AudioFileURL         string        `json:"audioFileUrl,omitempty"`
	Language             string        `json:"language,omitempty"`
	Voice                *voiceTypeDTO `json:"voice,omitempty"`
	NotifyURL            string        `json:"notifyUrl,omitempty"`
	NotifyContentVersion *int          `json:"notifyContentVersion,omitempty"`
	CallTimeout          *int          `json:"callTimeout,omitempty"`
	RingTimeout          *int          `json:"ringTimeout,omitempty"`
	Pause                *int          `json:"pause,omitempty"`
	MaxDtmf              *int          `json:"maxDtmf,omitempty"`
	DtmfTimeout          *int          `json:"dtmfTimeout,omitempty"`
	Record               bool          `json:"record,omitempty"`
	MachineDetection     string        `json:"machineDetection,omitempty"`
	CallbackData         string        `json:"callbackData,omitempty"`
	ValidityPeriod       *int          `json:"validityPeriod,omitempty"`
	EntityID             string        `json:"entityId,omitempty"`
	ApplicationID        string        `json:"applicationId,omitempty"`
}

type singleVoiceRequest struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Voice    *voiceTypeDTO `json:"voice,omitempty"`
}

type statusReports struct {
	Results []statusReport `json:"results"`
}

type reportPrice struct {
	PricePerMessage float64 `json:"pricePerMessage"`
	Currency        string  `json:"currency"`
}

type reportError struct {
	GroupID     int    `json:"groupId"`
	GroupName   string `json:"groupName"`
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Permanent   bool   `json:"permanent"`
}

type voiceCall struct {
	Feature         string     `json:"feature"`
	StartTime       vendorTime `json:"startTime"`
	AnswerTime      vendorTime `json:"answerTime"`
	EndTime         vendorTime `json:"endTime"`
	Duration        int        `json:"duration"`
	ChargedDuration int        `json:"chargedDuration"`
	FileDuration    float64    `json:"fileDuration"`
	DTMFCodes       string     `json:"dtmfCodes"`
	IVR             any        `json:"ivr"`
}

type statusReport struct {
	BulkID        string         `json:"bulkId"`
	MessageID     string         `json:"messageId"`
	To            string         `json:"to"`
	From          string         `json:"from"`
	SentAt        vendorTime     `json:"sentAt"`
	DoneAt        vendorTime     `json:"doneAt"`
	SMSCount      int            `json:"smsCount"`
	MessageCount  int            `json:"messageCount"`
	MCCMNC        string         `json:"mccMnc"`
	CallbackData  string         `json:"callbackData"`
	Price         *reportPrice   `json:"price"`
	Status        *messageStatus `json:"status"`
	Error         *reportError   `json:"error"`
	EntityID      string         `json:"entityId"`
	ApplicationID string         `json:"applicationId"`
	BrowserLink   string         `json:"browserLink"`
	VoiceCall     *voiceCall     `json:"voiceCall"`
}
