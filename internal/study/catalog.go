// Package study holds the static catalog of study techniques and their
// timer presets.
package study

import (
	"time"

	"github.com/dukerupert/progresspoint/internal/timer"
)

type Technique struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
	Tags    []string      `json:"tags"`
	Timer   *timer.Config `json:"timer,omitempty"`
	Why     []string      `json:"why"`
	How     []string      `json:"how"`
	Best    []string      `json:"best"`
	Note    string        `json:"note,omitempty"`
}

// HasTimer reports whether the technique comes with a timer preset.
func (t Technique) HasTimer() bool { return t.Timer != nil }

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

var catalog = []Technique{
	{
		ID:      "pomodoro",
		Title:   "Pomodoro Technique",
		Summary: "25 min focus + 5 min break, 4 rounds then long break",
		Tags:    []string{"Timer", "Anti-procrastination"},
		Timer:   &timer.Config{Work: minutes(25), Break: minutes(5), LongBreak: minutes(20), Cycles: 4},
		Why:     []string{"Low starting resistance: \"just 25 minutes\"", "Trains sustained attention", "Prevents mental exhaustion"},
		How:     []string{"Pick one task only", "Work for 25 minutes, no multitasking", "Stop immediately when timer ends"},
		Best:    []string{"Starting something difficult", "Fighting procrastination", "Daily routine study"},
	},
	{
		ID:      "extended-pomodoro",
		Title:   "Extended Pomodoro",
		Summary: "40-50 min focus + 10 min break",
		Tags:    []string{"Timer", "Deep work"},
		Timer:   &timer.Config{Work: minutes(45), Break: minutes(10)},
		Why:     []string{"Longer uninterrupted focus", "Fewer breaks, deeper immersion", "Reduces context switching"},
		How:     []string{"Focus 40-50 minutes straight", "Short 10 minute reset", "Repeat while energy is good"},
		Best:    []string{"Already have momentum", "Deep thinking tasks", "When 25 minutes feels short"},
	},
	{
		ID:      "time-boxing",
		Title:   "Time Boxing",
		Summary: "Fixed time per task",
		Tags:    []string{"Timer", "Planning"},
		Timer:   &timer.Config{Work: minutes(30)},
		Why:     []string{"Prevents perfectionism", "Forces prioritization", "Improves estimation"},
		How:     []string{"Decide time before starting", "Work only within that limit", "Stop when time ends"},
		Best:    []string{"Too many tasks", "Limited time windows", "Overthinking details"},
	},
	{
		ID:      "flowtime",
		Title:   "Flowtime Technique",
		Summary: "Follow your natural focus span",
		Tags:    []string{"Timer", "Flexible"},
		Timer:   &timer.Config{Work: minutes(25), Flexible: true},
		Why:     []string{"Respects your brain's rhythm", "Builds awareness of attention limits"},
		How:     []string{"Start timer, stop when focus breaks", "Log how long you stayed focused", "Rest, then repeat"},
		Best:    []string{"Pomodoro feels restrictive", "Creative/complex tasks", "Training longer focus gradually"},
	},
	{
		ID:      "focus-90",
		Title:   "90-Minute Focus Cycle",
		Summary: "90 min work + 20-30 min break",
		Tags:    []string{"Timer", "Deep focus"},
		Timer:   &timer.Config{Work: minutes(90), Break: minutes(25)},
		Why:     []string{"Matches natural energy cycles", "Enables deep thinking"},
		How:     []string{"One long, uninterrupted block", "Followed by proper recovery"},
		Best:    []string{"One important task", "No interruptions", "High energy levels"},
		Note:    "Not ideal for beginners or distracting environments.",
	},
	{
		ID:      "52-17",
		Title:   "52-17 Rule",
		Summary: "52 min focus + 17 min break",
		Tags:    []string{"Timer", "Balance"},
		Timer:   &timer.Config{Work: minutes(52), Break: minutes(17)},
		Why:     []string{"Balanced focus and recovery", "Avoids burnout", "Steady productivity"},
		How:     []string{"Focus for 52 minutes", "Step away for 17 minutes", "Repeat"},
		Best:    []string{"Long study days", "Repetitive tasks", "Maintaining consistency"},
	},
	{
		ID:      "countdown",
		Title:   "Countdown Method",
		Summary: "Race against the clock",
		Tags:    []string{"Timer", "Urgency"},
		Timer:   &timer.Config{Work: minutes(40)},
		Why:     []string{"Creates urgency", "Reduces distraction"},
		How:     []string{"Set a countdown (30-60 min)", "Work until it hits zero"},
		Best:    []string{"Low motivation", "Easy distraction"},
	},
	{
		ID:      "short-burst",
		Title:   "Short-Burst (Sprint) Method",
		Summary: "10-20 min bursts + short breaks",
		Tags:    []string{"Timer", "Low energy"},
		Timer:   &timer.Config{Work: minutes(15), Break: minutes(3)},
		Why:     []string{"Minimal mental resistance", "Builds momentum", "Great for tired days"},
		How:     []string{"Work 10-15 min, break 2-5 min", "Repeat to regain momentum"},
		Best:    []string{"Low energy", "Burnout recovery", "Restarting after a break"},
	},
	{
		ID:      "active-recall",
		Title:   "Active Recall",
		Summary: "Answer from memory, not notes",
		Tags:    []string{"No timer", "Memory"},
		Why:     []string{"Strengthens memory", "Exposes weak areas"},
		How:     []string{"Study once, close notes", "Ask yourself questions", "Answer without looking"},
		Best:    []string{"Concept learning", "Exam prep"},
	},
	{
		ID:      "feynman",
		Title:   "Feynman Technique",
		Summary: "Explain it simply to reveal gaps",
		Tags:    []string{"No timer", "Clarity"},
		Why:     []string{"Forces clarity", "Reveals confusion"},
		How:     []string{"Explain out loud in simple words", "Note where you get stuck", "Fix gaps, simplify again"},
		Best:    []string{"Confusing concepts", "Validate understanding"},
	},
	{
		ID:      "spaced-repetition",
		Title:   "Spaced Repetition",
		Summary: "Review at increasing intervals",
		Tags:    []string{"No timer", "Memory"},
		Why:     []string{"Moves info to long-term memory", "Reduces forgetting"},
		How:     []string{"Review after 1 day, 3-4 days, 1 week", "Use flashcards or quick quizzes"},
		Best:    []string{"Facts, formulas, vocab"},
	},
	{
		ID:      "blurting",
		Title:   "Blurting Method",
		Summary: "Write everything you recall",
		Tags:    []string{"No timer", "Recall"},
		Why:     []string{"Combines recall + revision", "Shows weak points fast"},
		How:     []string{"Study, close notes, write all you know", "Compare, fill gaps"},
		Best:    []string{"Revision", "Self-testing"},
	},
	{
		ID:      "interleaving",
		Title:   "Interleaving",
		Summary: "Mix related topics",
		Tags:    []string{"No timer", "Problem solving"},
		Why:     []string{"Improves flexible thinking", "Better problem-solving"},
		How:     []string{"Mix topics instead of finishing one fully", "Switch naturally while studying"},
		Best:    []string{"Multiple related subjects"},
	},
	{
		ID:      "retrieval",
		Title:   "Retrieval Practice",
		Summary: "Test yourself regularly",
		Tags:    []string{"No timer", "Practice"},
		Why:     []string{"Failure strengthens learning", "Speeds up recall"},
		How:     []string{"Practice questions", "Flashcards", "Explain answers from memory"},
		Best:    []string{"Exam prep", "Concept-heavy subjects"},
	},
	{
		ID:      "cornell",
		Title:   "Cornell Note-Taking",
		Summary: "Structured notes with prompts",
		Tags:    []string{"No timer", "Notes"},
		Why:     []string{"Organizes information", "Encourages active review"},
		How:     []string{"Notes on right, questions on left", "Summary at bottom", "Review regularly"},
		Best:    []string{"Lectures", "Reading-heavy study"},
	},
	{
		ID:      "elaboration",
		Title:   "Elaboration Technique",
		Summary: "Ask \"why\" and \"how\" for everything",
		Tags:    []string{"No timer", "Understanding"},
		Why:     []string{"Deepens understanding", "Makes learning meaningful"},
		How:     []string{"Connect to what you know", "Create examples in your words"},
		Best:    []string{"New concepts", "Avoiding rote memorization"},
	},
	{
		ID:      "teaching",
		Title:   "Teaching Method",
		Summary: "Teach someone else",
		Tags:    []string{"No timer", "Mastery"},
		Why:     []string{"Exposes gaps instantly", "Builds confidence"},
		How:     []string{"Explain aloud with simple language", "Answer imaginary questions"},
		Best:    []string{"Before exams", "Final revision"},
	},
}

// Catalog returns a copy of every technique in display order.
func Catalog() []Technique {
	out := make([]Technique, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a technique by id.
func Lookup(id string) (Technique, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Technique{}, false
}
