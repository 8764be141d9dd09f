package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ai-vietnam/minda/internal/app"
	"github.com/ai-vietnam/minda/internal/ui"
)

// runChat drives the interactive counseling loop. The first prompt is a
// login: an unknown username is registered with whatever the person
// shares about themselves, a known one reuses the stored profile.
func runChat(ctx context.Context, a *app.App) error {
	session, err := a.NewSession(ctx)
	if err != nil {
		return err
	}

	term := ui.NewConsole(os.Stdin, os.Stdout)
	term.Banner(AppVersion, a.Config.ModelName)

	username, profile, err := login(term, session)
	if err != nil {
		return err
	}
	term.Infof("Chào %s! Gõ 'exit' để kết thúc.", username)

	for {
		input, ok := term.Prompt(username)
		if !ok {
			term.Infof("Tạm biệt!")
			return nil
		}
		if input == "" {
			continue
		}
		if isExit(input) {
			term.Infof("Tạm biệt! Hẹn gặp lại.")
			return nil
		}

		reply, err := session.Agent.Execute(ctx, username, profile, input)
		if err != nil {
			a.Logger.Error("turn failed", "user", username, "error", err)
			term.Errorf("Có lỗi xảy ra, bạn thử gửi lại nhé.")
			continue
		}
		term.Reply(reply.Text)
		if reply.ScoreRecorded {
			term.Infof("Đánh giá hôm nay đã được lưu lại.")
		}
	}
}

// login reads the username and resolves the profile, asking for a
// self-description only on first login.
func login(term *ui.Console, session *app.Session) (string, string, error) {
	username, ok := term.Prompt("tên đăng nhập")
	if !ok || username == "" {
		return "", "", fmt.Errorf("no username given")
	}

	if existing, found, err := session.Registry.Lookup(username); err != nil {
		return "", "", fmt.Errorf("looking up user: %w", err)
	} else if found {
		return username, existing.Info, nil
	}

	term.Infof("Lần đầu gặp bạn! Hãy chia sẻ đôi chút về bản thân (tuổi, giới tính, tiền sử...).")
	info, _ := term.Prompt("giới thiệu")
	profile, err := session.Registry.Ensure(username, info)
	if err != nil {
		return "", "", fmt.Errorf("registering user: %w", err)
	}
	return username, profile.Info, nil
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "/exit", "/quit":
		return true
	}
	return false
}
