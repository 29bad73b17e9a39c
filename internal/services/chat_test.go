package services

import (
  "testing"

  "github.com/stretchr/testify/require"
)

func TestParseGeneratedQuestionsFromJSONFence(t *testing.T) {
  response := "Here are the questions.\n```json\n" +
    `{"questions":[{"question":"What is spaced repetition?","answer":"Reviewing at growing intervals.","explanation":"Intervals grow with each success.","why_important":"It fights forgetting.","difficulty_level":2,"related_concepts":["memory","scheduling"]}]}` +
    "\n```\nLet me know if you want more."

  questions, err := parseGeneratedQuestions(response)
  require.NoError(t, err)
  require.Len(t, questions, 1)
  require.Equal(t, "What is spaced repetition?", questions[0].Question)
  require.Equal(t, 2, questions[0].DifficultyLevel)
  require.Equal(t, []string{"memory", "scheduling"}, questions[0].RelatedConcepts)
}

func TestParseGeneratedQuestionsFromBareBraces(t *testing.T) {
  response := `Sure! {"questions":[{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"}]} Done.`

  questions, err := parseGeneratedQuestions(response)
  require.NoError(t, err)
  require.Len(t, questions, 2)
  require.Equal(t, "q2", questions[1].Question)
}

func TestParseGeneratedQuestionsNoJSON(t *testing.T) {
  _, err := parseGeneratedQuestions("I could not generate any questions, sorry.")
  require.Error(t, err)
}

func TestParseGeneratedQuestionsUnfencedCodeBlock(t *testing.T) {
  response := "```\n{\"questions\":[{\"question\":\"q\",\"answer\":\"a\"}]}\n```"

  questions, err := parseGeneratedQuestions(response)
  require.NoError(t, err)
  require.Len(t, questions, 1)
}

func TestSplitSystemSeparatesSystemMessage(t *testing.T) {
  system, chat := splitSystem([]LLMMessage{
    {Role: "system", Content: "be helpful"},
    {Role: "user", Content: "hi"},
    {Role: "assistant", Content: "hello"},
  })
  require.Equal(t, "be helpful", system)
  require.Len(t, chat, 2)
  require.Equal(t, "user", chat[0].Role)
}

func TestSplitSystemWithoutSystemMessage(t *testing.T) {
  system, chat := splitSystem([]LLMMessage{{Role: "user", Content: "hi"}})
  require.Empty(t, system)
  require.Len(t, chat, 1)
}
