package main

import (
	"fmt"

	"watchparty/internal/api"
	"watchparty/internal/settings"
)

// LoginCmd signs in and stores the access token in the settings store.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `arg:"" help:"Account password"`
}

func (c *LoginCmd) Run(app *App) error {
	resp := app.Client().Login(app.ctx, c.Email, c.Password)
	if err := check("login", resp); err != nil {
		return err
	}

	s, err := app.Settings()
	if err != nil {
		return err
	}
	if err := s.Set(settings.DefaultTokenKey, resp.Data.Access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	user := resp.Data.User
	fmt.Fprintf(stdout, "%s %s (%s)\n", okStyle.Render("Signed in as"), keyStyle.Render(user.Username), user.Email)
	return nil
}

// DashboardCmd prints the signed-in user's dashboard summary.
type DashboardCmd struct{}

func (c *DashboardCmd) Run(app *App) error {
	client := app.Client()

	user := client.CurrentUser(app.ctx)
	if err := check("current user", user); err != nil {
		return err
	}
	stats := client.DashboardStats(app.ctx)
	if err := check("dashboard stats", stats); err != nil {
		return err
	}
	inbox := client.Notifications(app.ctx)
	if err := check("notifications", inbox); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s %s\n", keyStyle.Render("User:"), user.Data.Username)
	fmt.Fprintf(stdout, "Parties:        %d (%d upcoming)\n", stats.Data.TotalParties, stats.Data.UpcomingParties)
	fmt.Fprintf(stdout, "Participants:   %d\n", stats.Data.TotalParticipants)
	fmt.Fprintf(stdout, "Hours watched:  %d\n", stats.Data.HoursWatched)
	fmt.Fprintf(stdout, "Notifications:  %d unread of %d\n", inbox.Data.UnreadCount, inbox.Data.Count)
	for _, n := range inbox.Data.Unread() {
		fmt.Fprintf(stdout, "  %s %s\n", methodStyle.Render(n.Type), n.Title)
	}
	if len(stats.Data.RecentActivity) > 0 {
		fmt.Fprintln(stdout, "Recent activity:")
		for _, a := range stats.Data.RecentActivity {
			fmt.Fprintf(stdout, "  %s %s\n", timeStyle.Render(a.Timestamp), a.Message)
		}
	}
	return nil
}

// PartyCmd groups party commands.
type PartyCmd struct {
	List   PartyListCmd   `cmd:"" help:"List parties"`
	Create PartyCreateCmd `cmd:"" help:"Schedule a new party"`
}

type PartyListCmd struct{}

func (c *PartyListCmd) Run(app *App) error {
	page := app.Client().ListParties(app.ctx)
	if err := check("list parties", page); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d parties\n", page.Data.Count)
	for _, p := range page.Data.Results {
		fmt.Fprintf(stdout, "%4d  %-10s %s (%d/%d)\n", p.ID, p.Status, p.Title, p.ParticipantsCount, p.MaxParticipants)
	}
	return nil
}

type PartyCreateCmd struct {
	Title        string `arg:"" help:"Party title"`
	Description  string `help:"Party description"`
	ScheduledFor string `name:"scheduled-for" help:"Start time (RFC 3339)"`
	VideoID      int    `name:"video-id" help:"Video to watch"`
}

func (c *PartyCreateCmd) Run(app *App) error {
	resp := app.Client().CreateParty(app.ctx, api.NewParty{
		Title:        c.Title,
		Description:  c.Description,
		ScheduledFor: c.ScheduledFor,
		VideoID:      c.VideoID,
	})
	if err := check("create party", resp); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s party %d: %s\n", okStyle.Render("Created"), resp.Data.ID, resp.Data.Title)
	return nil
}

// check turns a failed typed response into an exitError.
func check[T any](what string, resp api.Response[T]) error {
	if resp.OK() {
		return nil
	}
	return exitError{code: 1, msg: fmt.Sprintf("%s: %s: %s", what, errStyle.Render(fmt.Sprintf("%d", resp.Status)), resp.Error)}
}
