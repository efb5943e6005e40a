package models

import "time"

// Job trigger types
const (
	TriggerInterval = "interval"
	TriggerCron     = "cron"
	TriggerDate     = "date"
)

// Job run status values
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Deployment modes
const (
	ModeStandalone = "standalone"
	ModeWorker     = "worker"
)

// Request types

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type TriggerRequest struct {
	Type    string     `json:"type"`
	Seconds int        `json:"seconds,omitempty"`
	Cron    string     `json:"cron,omitempty"`
	RunAt   *time.Time `json:"run_at,omitempty"`
}

type CreateJobRequest struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Task            string         `json:"task"`
	Trigger         TriggerRequest `json:"trigger"`
	Args            map[string]any `json:"args,omitempty"`
	ReplaceExisting bool           `json:"replace_existing"`
}

type RunExampleRequest struct {
	Counter string `json:"counter"`
}

type ScheduleExampleRequest struct {
	Counter string `json:"counter"`
	Seconds int    `json:"seconds"`
}

// Response types

type UserInfo struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type LoginResponse struct {
	User      UserInfo  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CounterResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type ExampleJobResponse struct {
	JobID   string `json:"job_id"`
	Counter string `json:"counter"`
}

type DashboardResponse struct {
	User             UserInfo `json:"user"`
	SchedulerRunning bool     `json:"scheduler_running"`
	JobCount         int      `json:"job_count"`
	RecentRuns       []JobRun `json:"recent_runs"`
}

type DevInfoResponse struct {
	Config           string `json:"config"`
	Mode             string `json:"mode"`
	WorkerID         int    `json:"worker_id,omitempty"`
	SchedulerRunning bool   `json:"scheduler_running"`
	JobCount         int    `json:"job_count"`
}

// Persistent types

type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"size:80;not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"` // Never expose in JSON
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Info strips the user down to what the API returns
func (u User) Info() UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// Session is keyed by the sha256 of the session token; the token itself
// is never stored
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:36;not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

type Job struct {
	ID              string         `gorm:"primaryKey;size:191"`
	Name            string         `gorm:"size:191"`
	Task            string         `gorm:"size:191;not null;index"`
	TriggerType     string         `gorm:"size:16;not null;check:trigger_type IN ('interval','cron','date')"`
	IntervalSeconds int            `gorm:"not null;default:0"`
	CronExpr        string         `gorm:"size:191"`
	RunAt           *time.Time
	Args            map[string]any `gorm:"serializer:json"`
	Paused          bool           `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type JobRun struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"size:191;not null;index" json:"job_id"`
	Task       string    `gorm:"size:191;not null" json:"task"`
	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	Error      string    `gorm:"size:1024" json:"error,omitempty"`
}

type Counter struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
