package seed

import "github.com/recitalsite/recital/backend/go-services/internal/content"

// SentinelStoryID marks a namespace as seeded. It must never change, or
// existing deployments would be seeded a second time.
const SentinelStoryID = "sample-story-1"

func sampleStories() []content.Story {
	return []content.Story{
		{
			ID:       SentinelStoryID,
			Title:    "First Steps on the Big Stage",
			Content:  "The lights dimmed, the music swelled, and our littlest dancers took their first bows. Months of Saturday rehearsals came together in three minutes of pure joy.",
			ImageURL: "https://placehold.co/600x400?text=First+Steps",
		},
		{
			ID:      "sample-story-2",
			Title:   "Behind the Curtain",
			Content: "Costume changes in ninety seconds, a missing ballet slipper found in the prop box, and a backstage crew of parents who kept everyone calm.",
		},
		{
			ID:       "sample-story-3",
			Title:    "The Grand Finale",
			Content:  "Every class returned to the stage for the closing number. The standing ovation lasted longer than the dance itself.",
			ImageURL: "https://placehold.co/600x400?text=Finale",
		},
	}
}

func sampleFeedback() []content.Feedback {
	return []content.Feedback{
		{Name: "Maria", Email: "maria@example.com", Message: "What a wonderful evening. The tap number was my favourite!"},
		{Name: "Grandpa Joe", Message: "Proud of every single dancer. Please post more photos."},
		{Name: "Priya", Email: "priya@example.com", Message: "The seating was comfortable and the show ran right on time."},
	}
}

// sampleComments attach to the sentinel story. Fixed ids make a racing
// second run collide instead of duplicating them.
func sampleComments() []content.Comment {
	return []content.Comment{
		{ID: "sample-comment-1", StoryID: SentinelStoryID, CommenterName: "Aunt Lisa", CommentText: "I cried happy tears the whole time!"},
		{ID: "sample-comment-2", StoryID: SentinelStoryID, CommenterName: "Coach Dana", CommentText: "So proud of how far you have all come."},
		{ID: "sample-comment-3", StoryID: SentinelStoryID, CommenterName: "Sam", CommentText: "Can't wait for next year's show."},
	}
}
