package api

import (
	"context"
	"errors"
	"fmt"
)

// UserSummary is the compact user shape embedded in parties and chat.
type UserSummary struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Profile holds the optional profile fields of a user.
type Profile struct {
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Headline string `json:"headline,omitempty"`
}

// User is the authenticated account.
type User struct {
	ID        int      `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Role      string   `json:"role,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
}

// Validate implements Validator.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user id must be positive")
	}
	if u.Username == "" {
		return errors.New("user username is required")
	}
	return nil
}

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login is the token pair returned on sign-in.
type Login struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Validate implements Validator.
func (l *Login) Validate() error {
	if l.Access == "" {
		return errors.New("login access token is missing")
	}
	return l.User.Validate()
}

// PartyVideo is the video attached to a party.
type PartyVideo struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Duration        int    `json:"duration"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	ProcessingState string `json:"processing_state,omitempty"`
}

// PartySettings are the host-controlled toggles of a party.
type PartySettings struct {
	AllowChat         bool `json:"allow_chat"`
	AllowReactions    bool `json:"allow_reactions"`
	ModerationEnabled bool `json:"moderation_enabled"`
	Public            bool `json:"public"`
}

// Party is a scheduled watch party.
type Party struct {
	ID                int            `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	ScheduledFor      string         `json:"scheduled_for,omitempty"`
	Status            string         `json:"status"`
	Host              *UserSummary   `json:"host,omitempty"`
	ParticipantsCount int            `json:"participants_count"`
	MaxParticipants   int            `json:"max_participants"`
	Video             *PartyVideo    `json:"video,omitempty"`
	Settings          *PartySettings `json:"settings,omitempty"`
}

// Validate implements Validator.
func (p *Party) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("party id %d must be positive", p.ID)
	}
	if p.Title == "" {
		return fmt.Errorf("party %d has no title", p.ID)
	}
	if p.MaxParticipants > 0 && p.ParticipantsCount > p.MaxParticipants {
		return fmt.Errorf("party %d has %d participants, limit %d", p.ID, p.ParticipantsCount, p.MaxParticipants)
	}
	return nil
}

// PartyPage is one page of the party listing.
type PartyPage Paginated[Party]

// Validate implements Validator.
func (pp *PartyPage) Validate() error {
	if pp.Count < len(pp.Results) {
		return fmt.Errorf("count %d is less than %d results", pp.Count, len(pp.Results))
	}
	for i := range pp.Results {
		if err := pp.Results[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewParty is the body of the create-party call.
type NewParty struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ScheduledFor string `json:"scheduled_for,omitempty"`
	VideoID      int    `json:"video_id,omitempty"`
}

// CreatedParty is returned after a party is created.
type CreatedParty struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Validate implements Validator.
func (c *CreatedParty) Validate() error {
	if c.ID <= 0 {
		return errors.New("created party id must be positive")
	}
	return nil
}

// Activity is one entry of the dashboard activity feed.
type Activity struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalParties      int        `json:"total_parties"`
	UpcomingParties   int        `json:"upcoming_parties"`
	TotalParticipants int        `json:"total_participants"`
	HoursWatched      int        `json:"hours_watched"`
	RecentActivity    []Activity `json:"recent_activity"`
}

// Validate implements Validator.
func (s *Stats) Validate() error {
	if s.TotalParties < 0 || s.UpcomingParties < 0 || s.TotalParticipants < 0 || s.HoursWatched < 0 {
		return errors.New("dashboard counters must not be negative")
	}
	if s.UpcomingParties > s.TotalParties {
		return fmt.Errorf("upcoming parties %d exceed total %d", s.UpcomingParties, s.TotalParties)
	}
	return nil
}

// Notification is a single inbox entry.
type Notification struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	Timestamp string `json:"timestamp"`
	ActionURL string `json:"action_url,omitempty"`
}

// Inbox is the notification listing.
type Inbox struct {
	Count       int            `json:"count"`
	UnreadCount int            `json:"unread_count"`
	Results     []Notification `json:"results"`
}

// Validate implements Validator.
func (in *Inbox) Validate() error {
	if in.UnreadCount > in.Count {
		return fmt.Errorf("unread count %d exceeds total %d", in.UnreadCount, in.Count)
	}
	return nil
}

// Unread returns the unread notifications of the page.
func (in *Inbox) Unread() []Notification {
	var out []Notification
	for _, n := range in.Results {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) Response[Login] {
	return PostAs[Login](ctx, c, RouteLogin, LoginRequest{Email: email, Password: password})
}

// CurrentUser fetches the signed-in account.
func (c *Client) CurrentUser(ctx context.Context) Response[User] {
	return GetAs[User](ctx, c, RouteCurrentUser)
}

// ListParties fetches the first page of parties.
func (c *Client) ListParties(ctx context.Context) Response[PartyPage] {
	return GetAs[PartyPage](ctx, c, RouteParties)
}

// CreateParty schedules a new party.
func (c *Client) CreateParty(ctx context.Context, party NewParty) Response[CreatedParty] {
	return PostAs[CreatedParty](ctx, c, RouteParties, party)
}

// DashboardStats fetches the dashboard summary.
func (c *Client) DashboardStats(ctx context.Context) Response[Stats] {
	return GetAs[Stats](ctx, c, RouteDashboardStats)
}

// Notifications fetches the notification inbox.
func (c *Client) Notifications(ctx context.Context) Response[Inbox] {
	return GetAs[Inbox](ctx, c, RouteNotifications)
}
