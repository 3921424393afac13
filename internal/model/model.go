package model

import "time"

const (
	RoleMember = 0
	RoleAdmin  = 1
)

type User struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     int      `json:"role"`
	Rating   *float64 `json:"rating"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Thread struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  int64  `json:"user_id,omitempty"`
	Author  *User  `json:"user,omitempty"`
}

// Response is a message posted in a thread. User is populated lazily when
// the list endpoint does not embed the author.
type Response struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	ThreadID  int64     `json:"thread_id"`
	UserID    int64     `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AuthorName is the display name used by renderers.
func (r Response) AuthorName() string {
	if r.User == nil || r.User.Username == "" {
		return "Unknown User"
	}
	return r.User.Username
}

type Vote struct {
	ID         int64 `json:"id"`
	ResponseID int64 `json:"response_id"`
	VoterID    int64 `json:"voter_id"`
	Action     bool  `json:"action"`
	Read       bool  `json:"read"`
}

// UnreadVote is a vote cast by the current user that has not been seen yet.
// Type 1 is a like, anything else a dislike.
type UnreadVote struct {
	ID       int64    `json:"id"`
	Type     int      `json:"type"`
	Response Response `json:"response"`
}

func (v UnreadVote) Liked() bool {
	return v.Type == 1
}

type Rating struct {
	UserID  int64 `json:"user_id"`
	RaterID int64 `json:"rater_id"`
	Value   int   `json:"rating"`
}

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type RegisterForm struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type ProfileUpdate struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}
