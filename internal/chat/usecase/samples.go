package usecase

// SampleMessages is the content pool for planner-generated deliveries.
var SampleMessages = []string{
	"Hey, how have you been?",
	"Did you catch the game last night?",
	"I was just thinking about our last conversation.",
	"Any plans for the weekend?",
	"You won't believe what happened today!",
	"Long time no talk, what's new?",
	"Have you tried that new place downtown?",
	"Quick question when you have a minute.",
	"Hope your week is going well!",
	"Let's catch up soon.",
}
