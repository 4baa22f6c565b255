package companion

import (
	"encoding/json"
	"regexp"
)

// DefaultScore is used when the model's score is missing or unreadable.
const DefaultScore = 85

const systemPromptComment = `You are a warm, empathetic AI companion for a personal journal app called "Duo Journal". Your role is to provide emotional support and encouragement to users based on their journal entries.

Guidelines:
1. Be genuinely empathetic and understanding
2. If the user expresses difficulties or setbacks, offer warm comfort and gentle encouragement
3. If the user shares happy moments, celebrate with them enthusiastically
4. Keep your responses concise but heartfelt (2-4 sentences)
5. Use a warm, friendly tone like a supportive friend
6. Respond in the same language as the journal entry (Chinese or English)
7. Never be judgmental or dismissive of feelings

Remember: Your goal is to make the user feel heard, understood, and supported.`

const systemPromptScore = `You are a warm, empathetic AI companion for a personal journal app. Your task is to:
1. Provide a supportive comment (2-4 sentences)
2. Give a mood/day score from 0-100

Scoring guidelines (be encouraging):
- Default minimum: 80/100 (most days deserve recognition)
- 85-90: Regular day with some positive moments
- 90-95: Good day with clear achievements or happiness
- 95-100: Exceptional day with major achievements, celebrations, or pure joy
- Only go below 80 if the entry describes genuinely difficult circumstances

IMPORTANT: Always be encouraging. Most people are doing better than they think!

You MUST respond ONLY with valid JSON, no extra text: {"comment": "your supportive message", "score": number}
Respond in the same language as the journal entry.`

const systemPromptChat = `You are a warm, empathetic AI companion continuing a supportive conversation about the user's journal entry. Be understanding, encouraging, and helpful. Keep responses concise (2-4 sentences). Respond in the same language as the user.`

const chatAcknowledgement = "I've read your journal entry. I'm here to listen and support you."

func commentPrompt(entry string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPromptComment},
		{Role: RoleUser, Content: "Here is my journal entry for today:\n\n" + entry + "\n\nPlease provide some supportive words."},
	}
}

func scorePrompt(entry string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPromptScore},
		{Role: RoleUser, Content: "Here is my journal entry for today:\n\n" + entry + "\n\nPlease provide supportive words and a score in JSON format."},
	}
}

// chatPrompt frames the entry as context, replays history and appends text.
func chatPrompt(entry string, history []ChatMessage, text string) []Message {
	msgs := make([]Message, 0, len(history)+4)
	msgs = append(msgs,
		Message{Role: RoleSystem, Content: systemPromptChat},
		Message{Role: RoleUser, Content: "Context - My journal entry: " + entry},
		Message{Role: RoleAssistant, Content: chatAcknowledgement},
	)
	for _, h := range history {
		msgs = append(msgs, Message{Role: h.Role, Content: h.Content})
	}
	return append(msgs, Message{Role: RoleUser, Content: text})
}

// scoredPattern finds the first object mentioning comment then score; models
// often wrap the JSON in markdown fences.
var scoredPattern = regexp.MustCompile(`(?s)\{.*?"comment".*?"score".*?\}`)

// parseScored extracts the comment and a 0-100 score from a model reply.
// Anything unreadable falls back to the raw reply with DefaultScore.
func parseScored(reply string) (string, int) {
	match := scoredPattern.FindString(reply)
	if match == "" {
		return reply, DefaultScore
	}
	var parsed struct {
		Comment string   `json:"comment"`
		Score   *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return reply, DefaultScore
	}

	comment := parsed.Comment
	if comment == "" {
		comment = reply
	}
	score := DefaultScore
	if parsed.Score != nil && *parsed.Score != 0 {
		score = int(*parsed.Score)
	}
	return comment, min(100, max(0, score))
}
