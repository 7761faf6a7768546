package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/studyplan-api/internal/models"
)

type emailMessage struct {
	Subject string
	Body    string
}

func sessionEndingMessage(student models.User, slot models.TimeSlot, minutesLeft int) emailMessage {
	focus := slot.SubjectName()
	if focus == "" {
		focus = slot.Activity
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Hi %s,\n\n", student.FirstName)
	fmt.Fprintf(&builder, "Your %s session on %s", strings.ToLower(slot.Activity), focus)
	if slot.Topic != "" {
		fmt.Fprintf(&builder, " (%s)", slot.Topic)
	}
	fmt.Fprintf(&builder, " ends in %d minutes, at the end of %s.\n", minutesLeft, slot.TimeRange)
	builder.WriteString("Remember to mark it as completed once you are done.\n")

	return emailMessage{
		Subject: "Revision Session Ending Soon - " + focus,
		Body:    builder.String(),
	}
}

func unfinishedItems(slots []models.TimeSlot) string {
	builder := strings.Builder{}
	for _, slot := range slots {
		fmt.Fprintf(&builder, "- %s: %s", slot.TimeRange, slot.Activity)
		if subject := slot.SubjectName(); subject != "" {
			fmt.Fprintf(&builder, " (%s)", subject)
		}
		if slot.Topic != "" {
			fmt.Fprintf(&builder, " - %s", slot.Topic)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func unfinishedWorkStudentMessage(student models.User, slots []models.TimeSlot) emailMessage {
	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Hi %s,\n\n", student.FirstName)
	builder.WriteString("The following tasks from today's schedule are not marked as completed:\n\n")
	builder.WriteString(unfinishedItems(slots))
	builder.WriteString("\nTry to catch up tomorrow and keep your schedule up to date.\n")

	return emailMessage{
		Subject: "Homework Not Completed - " + student.FullName(),
		Body:    builder.String(),
	}
}

func unfinishedWorkParentMessage(parent models.User, student models.User, slots []models.TimeSlot) emailMessage {
	builder := strings.Builder{}
	fmt.Fprintf(&builder, "Dear %s,\n\n", parent.FullName())
	fmt.Fprintf(&builder, "%s has not completed the following tasks from today's schedule:\n\n", student.FullName())
	builder.WriteString(unfinishedItems(slots))

	return emailMessage{
		Subject: "Homework Not Completed - " + student.FullName(),
		Body:    builder.String(),
	}
}

func quizScoreMessage(recipient models.User, student models.User, quiz models.Quiz) emailMessage {
	score := 0.0
	if quiz.Score != nil {
		score = *quiz.Score
	}

	builder := strings.Builder{}
	if recipient.ID == student.ID {
		fmt.Fprintf(&builder, "Hi %s,\n\n", student.FirstName)
		fmt.Fprintf(&builder, "You scored %.1f%% on your %s quiz", score, quiz.Subject)
	} else {
		fmt.Fprintf(&builder, "Dear %s,\n\n", recipient.FullName())
		fmt.Fprintf(&builder, "%s scored %.1f%% on the %s quiz", student.FullName(), score, quiz.Subject)
	}
	if quiz.Topic != "" {
		fmt.Fprintf(&builder, " (%s)", quiz.Topic)
	}
	fmt.Fprintf(&builder, ", answering %d of %d questions correctly.\n\n", quiz.CorrectAnswers, quiz.TotalQuestions)

	if score >= models.QuizPassingScore {
		builder.WriteString("Great job! Keep up the good work!\n")
	} else {
		builder.WriteString("Please review the material and practice more.\n")
	}

	return emailMessage{
		Subject: "Quiz Score Notification - " + student.FullName(),
		Body:    builder.String(),
	}
}
