package core

import (
	"strings"
	"time"
)

// DefaultTimezone and DefaultLocalHour apply when a user has not chosen a delivery slot.
const (
	DefaultTimezone  = "UTC"
	DefaultLocalHour = 9
)

// UserPreference is the delivery slot a user picked, in their own timezone.
type UserPreference struct {
	Timezone  string `json:"timezone"`   // IANA timezone id
	LocalHour int    `json:"local_hour"` // 0-23
}

// User is one row of the user store as seen by the scheduler.
type User struct {
	ID                    string          `json:"id"`
	Email                 string          `json:"email"`
	FullName              string          `json:"full_name"`
	BusinessDescription   string          `json:"business_description"`
	Timezone              string          `json:"timezone"`
	EmailTimeHour         *int            `json:"email_time_hour"`
	EmailNotifications    bool            `json:"email_notifications"`
	AuthID                string          `json:"auth_id"`
	LastAnalysisResults   *AnalysisResult `json:"last_analysis_results"`
	AnalysisReadyForEmail bool            `json:"analysis_ready_for_email"`
	LastAnalysisRun       *time.Time      `json:"last_analysis_run"`
	LastEmailSent         *time.Time      `json:"last_email_sent"`
}

// Preference returns the user's delivery slot with defaults applied.
// A missing or out-of-range hour falls back to DefaultLocalHour.
func (u User) Preference() UserPreference {
	pref := UserPreference{Timezone: strings.TrimSpace(u.Timezone), LocalHour: DefaultLocalHour}
	if pref.Timezone == "" {
		pref.Timezone = DefaultTimezone
	}
	if u.EmailTimeHour != nil && *u.EmailTimeHour >= 0 && *u.EmailTimeHour <= 23 {
		pref.LocalHour = *u.EmailTimeHour
	}
	return pref
}

// DisplayName is the name used in email greetings and recipient headers.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// ScheduleDecision is derived per user per tick and never persisted.
type ScheduleDecision struct {
	UserID       string `json:"user_id"`
	Timezone     string `json:"timezone"`
	LocalHour    int    `json:"local_hour"`
	UTCHour      int    `json:"utc_hour"`
	AnalysisHour int    `json:"analysis_hour"`
	AnalysisDue  bool   `json:"analysis_due"`
	EmailDue     bool   `json:"email_due"`
	Degraded     bool   `json:"degraded"` // timezone resolution fell back to the local hour
}

// Recognized StrategyDocument keys, in document order.
const (
	KeyObservations            = "observations"
	KeyRawContent              = "content" // fallback for observations
	KeyKeyTakeaways            = "keyTakeaways"
	KeySampleScript            = "sampleScript"
	KeyTechnicalSpecifications = "technicalSpecifications"
	KeyContentThemes           = "contentThemes"
	KeyHashtagStrategy         = "hashtagStrategy"
	KeyPostingFrequency        = "postingFrequency"
)

// StrategyDocument is the marketingStrategy payload of an analysis.
// Values are strings, or for contentThemes possibly a list of strings.
type StrategyDocument map[string]any

// AnalysisRequest is the body sent to the analysis endpoint.
type AnalysisRequest struct {
	BusinessDescription string `json:"businessDescription"`
	UserID              string `json:"userId"`
	VideosPerQuery      int    `json:"videosPerQuery"`
}

// AnalysisResult is the analysis endpoint response, stored as last_analysis_results.
type AnalysisResult struct {
	SearchQueries     []string         `json:"searchQueries"`
	VideosCount       int              `json:"videosCount"`
	MarketingStrategy StrategyDocument `json:"marketingStrategy"`
}

// Contact is an email address with a display name.
type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailMessage is a rendered email ready for the transport.
type EmailMessage struct {
	To          Contact `json:"to"`
	Sender      Contact `json:"sender"`
	Subject     string  `json:"subject"`
	HTMLContent string  `json:"htmlContent"`
}
