package schedule

import (
	"vidpulse/internal/core"
)

// AnomalyKind classifies a scheduling irregularity worth monitoring.
type AnomalyKind string

const (
	// AnomalyDegraded means timezone resolution fell back to the local hour.
	AnomalyDegraded AnomalyKind = "degraded_resolution"
	// AnomalyBothDue means a user landed in both due sets for one tick.
	AnomalyBothDue AnomalyKind = "both_due"
)

// Anomaly is recorded, never fatal.
type Anomaly struct {
	Kind   AnomalyKind
	UserID string
	Err    error
}

// Evaluation is the outcome of one evaluation pass.
type Evaluation struct {
	CurrentUTCHour int
	AnalysisDue    []core.User
	EmailDue       []core.User
	Decisions      []core.ScheduleDecision
	Anomalies      []Anomaly
}

// Evaluate partitions users into the analysis and email due sets for currentUTCHour.
func Evaluate(currentUTCHour int, users []core.User, r *Resolver) Evaluation {
	if r == nil {
		r = NewResolver()
	}

	ev := Evaluation{CurrentUTCHour: currentUTCHour}
	for _, u := range users {
		pref := u.Preference()
		utcHour, err := r.LocalToUTCHour(pref.LocalHour, pref.Timezone)

		d := core.ScheduleDecision{
			UserID:       u.ID,
			Timezone:     pref.Timezone,
			LocalHour:    pref.LocalHour,
			UTCHour:      utcHour,
			AnalysisHour: AnalysisHour(utcHour),
			Degraded:     err != nil,
		}
		d.AnalysisDue = d.AnalysisHour == currentUTCHour
		d.EmailDue = d.UTCHour == currentUTCHour

		if err != nil {
			ev.Anomalies = append(ev.Anomalies, Anomaly{Kind: AnomalyDegraded, UserID: u.ID, Err: err})
		}
		if d.AnalysisDue && d.EmailDue {
			ev.Anomalies = append(ev.Anomalies, Anomaly{Kind: AnomalyBothDue, UserID: u.ID})
		}

		if d.AnalysisDue {
			ev.AnalysisDue = append(ev.AnalysisDue, u)
		}
		if d.EmailDue {
			ev.EmailDue = append(ev.EmailDue, u)
		}
		ev.Decisions = append(ev.Decisions, d)
	}
	return ev
}
