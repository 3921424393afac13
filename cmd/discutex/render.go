package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/views"
)

func printThreads(w io.Writer, threads []model.Thread) {
	if len(threads) == 0 {
		fmt.Fprintln(w, views.NoThreadsMessage)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR")
	for _, t := range threads {
		author := ""
		if t.Author != nil {
			author = t.Author.Username
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Title, author)
	}
	_ = tw.Flush()
}

func printGroup(w io.Writer, st views.GroupState) {
	fmt.Fprintln(w, st.Heading())
	if st.Empty() {
		fmt.Fprintln(w, views.NoResponsesMessage)
		return
	}
	for _, r := range st.Responses {
		marker := ""
		if !st.CanVote(r) {
			marker = " (you)"
		}
		fmt.Fprintf(w, "[%d] %s%s: %s  (+%d/-%d)\n", r.ID, r.AuthorName(), marker, r.Content, r.Likes, r.Dislikes)
	}
}

func printUsers(w io.Writer, st views.UserRatingsState) {
	if st.Empty() {
		fmt.Fprintln(w, views.NoUsersMessage)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tROLE\tRATING")
	for _, u := range st.Users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Username, roleName(u.Role), starBar(st.Stars(u)))
	}
	_ = tw.Flush()
}

func printDashboard(w io.Writer, st views.DashboardState) {
	fmt.Fprintln(w, st.Greeting())
	if st.User == nil {
		return
	}
	fmt.Fprintf(w, "Name:     %s\n", st.User.Name)
	fmt.Fprintf(w, "Email:    %s\n", st.User.Email)
	fmt.Fprintf(w, "Username: %s\n", st.User.Username)
	fmt.Fprintf(w, "Role:     %s\n", roleName(st.User.Role))
	fmt.Fprintf(w, "Unread:   %d notifications, %d votes\n", st.UnreadCount, len(st.UnreadVotes))
}

func printNotifications(w io.Writer, st views.DashboardState) {
	fmt.Fprintf(w, "Notifications (%d unread)\n", st.UnreadCount)
	if len(st.Notifications) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, n := range st.Notifications {
		fmt.Fprintf(w, "  %s\n", n.Message)
	}
	fmt.Fprintln(w, "Unread votes")
	lines := st.VoteLines()
	if len(lines) == 0 {
		fmt.Fprintf(w, "  %s\n", views.NoUnreadVotesMessage)
	}
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
}

func starBar(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func roleName(role int) string {
	if role == model.RoleAdmin {
		return "admin"
	}
	return "member"
}
