package service

import (
	"fmt"
	"strings"

	"github.com/imsebeom/ai-survey/internal/ai"
	"github.com/imsebeom/ai-survey/internal/model"
)

var targetDescriptions = map[model.SurveyTarget]string{
	model.TargetStudent: "elementary, middle and high school students",
	model.TargetTeacher: "teachers",
	model.TargetParent:  "parents of students",
}

var modeDescriptions = map[model.SurveyMode]string{
	model.ModeClassic:   "a regular form made of multiple-choice and open-ended questions",
	model.ModeInterview: "a conversational interview where questions are asked one at a time in chat",
}

const fallbackDraftRequest = "Create a general satisfaction survey."

// buildDraftPrompt returns the instruction, the user content and the optional image
func buildDraftPrompt(in DraftInput) []ai.Part {
	interviewHint := ""
	if in.Mode == model.ModeInterview {
		interviewHint = "\nThis is an interview, so include plenty of open-ended questions (text, long_text)."
	}

	instruction := fmt.Sprintf(`You are an assistant that writes surveys for schools.
Analyze the given content and write the survey questions.

Audience: %s
Format: %s

Respond with ONLY valid JSON matching this schema:
{
  "title": "survey title",
  "description": "survey description",
  "questions": [
    {
      "id": "q1",
      "type": "single_choice | multiple_choice | text | long_text",
      "question": "question text",
      "options": ["option 1", "option 2"]
    }
  ]
}

Question types:
- single_choice: pick exactly one option
- multiple_choice: pick any number of options
- text: short answer
- long_text: paragraph answer

"options" is required for choice questions and omitted otherwise.
The survey must have between %d and %d questions.
Write the survey in the language of the content.%s`,
		targetDescriptions[in.Target], modeDescriptions[in.Mode], minDraftQuestions, maxDraftQuestions, interviewHint)

	var content []string
	if text := strings.TrimSpace(in.FreeText); text != "" {
		content = append(content, "Content to analyze:\n"+text)
	}
	if extra := strings.TrimSpace(in.ExtraInstructions); extra != "" {
		content = append(content, "Additional requests:\n"+extra)
	}
	if len(content) == 0 && in.Image == nil {
		content = append(content, fallbackDraftRequest)
	}

	parts := []ai.Part{ai.Text(instruction)}
	if len(content) > 0 {
		parts = append(parts, ai.Text(strings.Join(content, "\n\n")))
	}
	if in.Image != nil {
		parts = append(parts,
			ai.Text("Extract the content of this image and base the survey on it."),
			ai.Image(in.Image.MIMEType, in.Image.Data))
	}
	return parts
}

// buildTurnPrompt asks the model to acknowledge the last utterance and either ask
// the next question or close the interview when next is nil.
func buildTurnPrompt(survey *model.Survey, position, total int, utterance string, next *model.Question) string {
	var sb strings.Builder
	sb.WriteString("You are a friendly interviewer running a survey as a conversation.\n\n")
	sb.WriteString(fmt.Sprintf("Survey title: %s\n", survey.Title))
	if survey.Description != "" {
		sb.WriteString(fmt.Sprintf("Survey description: %s\n", survey.Description))
	}
	sb.WriteString(fmt.Sprintf("Progress: question %d of %d\n\n", position, total))

	sb.WriteString("Your role:\n")
	sb.WriteString("1. Briefly acknowledge or empathize with the respondent's answer (1-2 sentences).\n")
	if next == nil {
		sb.WriteString("2. Tell the respondent the survey is complete and thank them for taking part.\n")
	} else {
		sb.WriteString(fmt.Sprintf("2. Naturally continue with the next question: %q\n", next.Question))
	}
	sb.WriteString("3. Keep a natural, conversational tone. Emoji are welcome in moderation.\n")
	sb.WriteString("4. Reply in the language of the survey.\n")

	if next != nil && len(next.Options) > 0 {
		sb.WriteString("\nOptions for the next question:\n")
		for i, opt := range next.Options {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, opt))
		}
		if next.Type == model.QuestionMultipleChoice {
			sb.WriteString("The respondent may pick several options, separated by commas, or answer freely.\n")
		} else {
			sb.WriteString("The respondent may pick an option or answer freely.\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nRespondent's answer: %s", utterance))
	return sb.String()
}

// greetingMessage opens an interview and asks the first question without calling the model
func greetingMessage(survey *model.Survey) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Hello! Thanks for joining the survey \"%s\".", survey.Title))
	if survey.Description != "" {
		sb.WriteString(" " + survey.Description)
	}
	sb.WriteString(fmt.Sprintf(" There are %d questions in total.\n\n", len(survey.Questions)))
	sb.WriteString(formatQuestion(&survey.Questions[0]))
	return sb.String()
}

func formatQuestion(q *model.Question) string {
	if len(q.Options) == 0 {
		return q.Question
	}
	var sb strings.Builder
	sb.WriteString(q.Question)
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return sb.String()
}
