package types

// Message type constants, to-server and to-client, exactly as listed
// in spec.md §6.1.
// ARCHITECTURAL DISCOVERY: message type constants defined exactly as
// specified to ensure compatibility with all routing logic across the
// system.
const (
	// To-server
	TypeRegister             = "register"
	TypeTranscription        = "transcription"
	TypeAudio                = "audio"
	TypeStudentAudio         = "student_audio"
	TypeTTSRequest           = "tts_request"
	TypeSettings             = "settings"
	TypeSendTranslation      = "send_translation"
	TypePing                 = "ping"
	TypePong                 = "pong"
	TypeComprehensionSignal  = "comprehension_signal"
	TypeStudentRequest       = "student_request"
	TypeTeacherReply         = "teacher_reply"

	// To-client (additional to the overlapping set above)
	TypeConnection          = "connection"
	TypeClassroomCode       = "classroom_code"
	TypeTranslation         = "translation"
	TypeTTSResponse         = "tts_response"
	TypeTeacherMode         = "teacher_mode"
	TypeACEHint             = "ace_hint"
	TypeManualSendAck       = "manual_send_ack"
	TypeError               = "error"
	TypeSessionExpired      = "session_expired"
	TypeStudentJoined       = "student_joined"
	TypeStudentCountUpdate  = "studentCountUpdate"
)

// Error/close codes from §6.2/§6.3.
const (
	CodeInvalidClassroom = "INVALID_CLASSROOM"
	CodeSessionExpired   = "SESSION_EXPIRED"

	CloseNormal         = 1000
	CloseSessionExpired = 1008
)

// Envelope is the minimal shape every inbound frame must satisfy for the
// codec to dispatch it (spec.md §4.4: "messages are JSON objects with a
// required type string").
type Envelope struct {
	Type string `json:"type"`
}

// RegisterMessage is the to-server register frame (§6.2).
type RegisterMessage struct {
	Type            string         `json:"type"`
	Role            string         `json:"role"`
	LanguageCode    string         `json:"languageCode"`
	Name            string         `json:"name,omitempty"`
	ClassroomCode   string         `json:"classroomCode,omitempty"`
	TeacherID       string         `json:"teacherId,omitempty"`
	Settings        *RawSettings   `json:"settings,omitempty"`
	TTSServiceType  string         `json:"ttsServiceType,omitempty"`
}

// RawSettings mirrors ClientSettings' known fields for JSON decoding,
// with pointers so an absent field can be told apart from a zero value.
// It has no catch-all field, so unknown keys are discarded on decode.
type RawSettings struct {
	TTSServiceType            *string `json:"ttsServiceType,omitempty"`
	UseClientSpeech           *bool   `json:"useClientSpeech,omitempty"`
	TranslationMode           *string `json:"translationMode,omitempty"`
	AllowComprehensionSignals *bool   `json:"allowComprehensionSignals,omitempty"`
	LowLiteracyMode           *bool   `json:"lowLiteracyMode,omitempty"`
	ACEEnabled                *bool   `json:"aceEnabled,omitempty"`
	TwoWayEnabled             *bool   `json:"twoWayEnabled,omitempty"`
}


// ClassroomCodeMessage is the to-client classroom_code frame.
type ClassroomCodeMessage struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	SessionID string `json:"sessionId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// TranslationMessage is the to-client translation frame (§6.2,
// authoritative shape).
type TranslationMessage struct {
	Type            string        `json:"type"`
	Text            string        `json:"text"`
	OriginalText    string        `json:"originalText"`
	SourceLanguage  string        `json:"sourceLanguage"`
	TargetLanguage  string        `json:"targetLanguage"`
	TTSServiceType  string        `json:"ttsServiceType"`
	AudioFormat     string        `json:"audioFormat,omitempty"`
	Latency         Latency       `json:"latency"`
	AudioData       string        `json:"audioData,omitempty"`
	UseClientSpeech bool          `json:"useClientSpeech,omitempty"`
	SpeechParams    *SpeechParams `json:"speechParams,omitempty"`
}

// SpeechParams is the client-side-speech directive payload.
type SpeechParams struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
	AutoPlay     bool   `json:"autoPlay"`
}

// TTSRequestMessage is the to-server tts_request frame.
type TTSRequestMessage struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
	Voice        string `json:"voice,omitempty"`
}

// TTSResponseMessage is the to-client tts_response frame.
type TTSResponseMessage struct {
	Type            string        `json:"type"`
	Status          string        `json:"status"`
	Text            string        `json:"text,omitempty"`
	LanguageCode    string        `json:"languageCode,omitempty"`
	TTSServiceType  string        `json:"ttsServiceType,omitempty"`
	AudioData       string        `json:"audioData,omitempty"`
	UseClientSpeech bool          `json:"useClientSpeech,omitempty"`
	SpeechParams    *SpeechParams `json:"speechParams,omitempty"`
	Error           *ErrorDetail  `json:"error,omitempty"`
	Timestamp       int64         `json:"timestamp"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorMessage is the generic to-client error frame.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionExpiredMessage is the to-client session_expired frame.
type SessionExpiredMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StudentJoinedMessage is broadcast to teachers on student registration.
type StudentJoinedPayload struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name,omitempty"`
	LanguageCode string `json:"languageCode"`
}

type StudentJoinedMessage struct {
	Type    string               `json:"type"`
	Payload StudentJoinedPayload `json:"payload"`
}

// TeacherModeMessage tells students whether translation is auto/manual.
type TeacherModeMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// StudentCountUpdateMessage informs teachers of the live student count.
type StudentCountUpdateMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// RegisterAckMessage acknowledges a successful register.
type RegisterAckData struct {
	Role         string         `json:"role"`
	LanguageCode string         `json:"languageCode"`
	Settings     ClientSettings `json:"settings"`
}

type RegisterAckMessage struct {
	Type   string          `json:"type"`
	Status string          `json:"status"`
	Data   RegisterAckData `json:"data"`
}

// SettingsAckMessage acknowledges a settings update.
type SettingsAckMessage struct {
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Settings ClientSettings `json:"settings"`
}

// PingMessage / PongMessage are the heartbeat frames.
type PingMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type PongMessage struct {
	Type             string `json:"type"`
	Timestamp        int64  `json:"timestamp"`
	OriginalTimestamp int64 `json:"originalTimestamp,omitempty"`
}

// TranscriptionEchoMessage carries interim (non-final) STT output back
// to the teacher only (§4.5.6).
type TranscriptionEchoMessage struct {
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	IsFinal   bool    `json:"isFinal"`
	Timestamp int64   `json:"timestamp"`
}

// ManualSendAckMessage acknowledges a manual send_translation request.
type ManualSendAckMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StudentRequestPayload/Message carry the two-way student->teacher text.
type StudentRequestPayload struct {
	RequestID    string `json:"requestId"`
	StudentID    string `json:"studentId"`
	Name         string `json:"name,omitempty"`
	LanguageCode string `json:"languageCode"`
	Text         string `json:"text"`
	Visibility   string `json:"visibility"`
}

type StudentRequestMessage struct {
	Type    string                `json:"type"`
	Payload StudentRequestPayload `json:"payload"`
}

// TeacherReplyMessage is the to-server teacher_reply frame.
type TeacherReplyMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Scope     string `json:"scope"` // "class" | "private"
	Text      string `json:"text"`
}

// ComprehensionSignalMessage is relayed to teachers as-is.
type ComprehensionSignalMessage struct {
	Type   string `json:"type"`
	Signal string `json:"signal,omitempty"`
	Extra  map[string]any `json:"-"`
}

// AudioMessage is the to-server audio / student_audio frame.
type AudioMessage struct {
	Type         string `json:"type"`
	Data         string `json:"data"`
	IsFinalChunk *bool  `json:"isFinalChunk,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// TranscriptionMessage is the to-server transcription frame (teacher
// text input, bypassing STT).
type TranscriptionMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTranslationMessage is the to-server manual-send frame.
type SendTranslationMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SettingsMessage is the to-server settings frame, including the legacy
// top-level ttsServiceType field applied before the settings object
// (§4.5.3).
type SettingsMessage struct {
	Type           string       `json:"type"`
	TTSServiceType string       `json:"ttsServiceType,omitempty"`
	Settings       *RawSettings `json:"settings,omitempty"`
}
