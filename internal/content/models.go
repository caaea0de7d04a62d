package content

import "time"

// PlaceholderImageURL is stored for stories created without an image.
const PlaceholderImageURL = "https://placehold.co/600x400?text=Recital+Photo"

// Story is a narrative post with an optional photo. Stories are never
// updated or deleted.
type Story struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"imageUrl"`
	AuthorID  string     `json:"authorId"`
	CreatedAt *time.Time `json:"createdAt"`
}

// Comment is attached to a story by StoryID. The reference is not checked
// by the store.
type Comment struct {
	ID            string     `json:"id"`
	StoryID       string     `json:"storyId"`
	CommentText   string     `json:"commentText"`
	CommenterName string     `json:"commenterName"`
	UserID        string     `json:"userId"`
	CreatedAt     *time.Time `json:"createdAt"`
}

// Feedback is a general note about the event.
type Feedback struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Message   string     `json:"message"`
	UserID    string     `json:"userId"`
	CreatedAt *time.Time `json:"createdAt"`
}

// FormatCreatedAt renders a timestamp for display. Records whose write is
// still in flight have no timestamp yet and render as "pending".
func FormatCreatedAt(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "pending"
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}
