package profile

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

const (
	DefaultWorkdayStart = "09:00"
	DefaultWorkdayEnd   = "18:00"
)

type Profile struct {
	UserID            string `yaml:"user_id" json:"userId"`
	PrioritizingRules string `yaml:"prioritizing_rules" json:"prioritizingRules"`
	SchedulingRules   string `yaml:"scheduling_rules" json:"schedulingRules"`
	Tier              Tier   `yaml:"tier" json:"tier"`
	AutoPrioritize    bool   `yaml:"auto_prioritize" json:"autoPrioritize"`
	AutoSchedule      bool   `yaml:"auto_schedule" json:"autoSchedule"`
	// Timezone is an IANA name; empty means the server default.
	Timezone     string    `yaml:"timezone" json:"timezone"`
	WorkdayStart string    `yaml:"workday_start" json:"workdayStart"`
	WorkdayEnd   string    `yaml:"workday_end" json:"workdayEnd"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`
}

// Default is the profile of a user who never saved one.
func Default(userID string) *Profile {
	return &Profile{
		UserID:         userID,
		Tier:           TierFree,
		AutoPrioritize: true,
		WorkdayStart:   DefaultWorkdayStart,
		WorkdayEnd:     DefaultWorkdayEnd,
	}
}

func (p *Profile) Location(fallback *time.Location) *time.Location {
	if p.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

func (p *Profile) Workday() (start, end string) {
	start, end = p.WorkdayStart, p.WorkdayEnd
	if start == "" {
		start = DefaultWorkdayStart
	}
	if end == "" {
		end = DefaultWorkdayEnd
	}
	return start, end
}

func (p *Profile) EffectiveTier() Tier {
	if p.Tier == TierPro {
		return TierPro
	}
	return TierFree
}
