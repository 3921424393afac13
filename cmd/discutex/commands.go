package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/discutex/discutex/internal/model"
	"github.com/discutex/discutex/internal/nav"
	"github.com/discutex/discutex/internal/views"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and remember the token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"DISCUTEX_PASSWORD"}, Usage: "prompted when omitted"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			password, err := passwordFlag(c, "password", "Password: ")
			if err != nil {
				return err
			}
			v := views.NewLogin(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			if err := v.Submit(c.Context, c.String("email"), password); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(e.out, views.NoticeLoggedIn)
			return nil
		}),
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"DISCUTEX_PASSWORD"}, Usage: "prompted when omitted"},
			&cli.StringFlag{Name: "password-confirmation", Usage: "defaults to --password"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			password, err := passwordFlag(c, "password", "Password: ")
			if err != nil {
				return err
			}
			confirmation := c.String("password-confirmation")
			if confirmation == "" {
				confirmation = password
			}
			v := views.NewRegister(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			err = v.Submit(c.Context, model.RegisterForm{
				Name:                 c.String("name"),
				Email:                c.String("email"),
				Username:             c.String("username"),
				Password:             password,
				PasswordConfirmation: confirmation,
			})
			if err != nil {
				return exitError(err)
			}
			fmt.Fprintln(e.out, views.NoticeRegistered)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the session",
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewDashboard(e.deps)
			defer v.Close()
			if err := v.Logout(c.Context); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(e.out, "Logged out.")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the current user",
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewDashboard(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printDashboard(e.out, st)
			return nil
		}),
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage your profile",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Change name, email or username",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "username"},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					v := views.NewDashboard(e.deps)
					v.Mount(c.Context)
					defer v.Close()
					st := v.State()
					if st.Error != "" {
						return cli.Exit(st.Error, 1)
					}
					v.Edit()
					upd := st.Draft
					if c.IsSet("name") {
						upd.Name = c.String("name")
					}
					if c.IsSet("email") {
						upd.Email = c.String("email")
					}
					if c.IsSet("username") {
						upd.Username = c.String("username")
					}
					if err := v.Save(c.Context, upd); err != nil {
						return exitError(err)
					}
					fmt.Fprintln(e.out, views.NoticeProfileUpdated)
					return nil
				}),
			},
		},
	}
}

func deleteAccountCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete-account",
		Usage: "Delete your account permanently",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the deletion"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if !c.Bool("yes") {
				return cli.Exit("Refusing to delete the account without --yes.", 1)
			}
			v := views.NewDashboard(e.deps)
			defer v.Close()
			if err := v.DeleteAccount(c.Context); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(e.out, "Account deleted.")
			return nil
		}),
	}
}

func threadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "threads",
		Usage: "List threads",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "filter by title"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewThreads(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			v.SetQuery(c.String("search"))
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printThreads(e.out, st.Threads)
			return nil
		}),
	}
}

func myThreadsCommand() *cli.Command {
	return &cli.Command{
		Name:  "my-threads",
		Usage: "List your threads",
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewMyThreads(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printThreads(e.out, st.Threads)
			return nil
		}),
	}
}

func threadCommand() *cli.Command {
	return &cli.Command{
		Name:  "thread",
		Usage: "Create or delete threads",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Start a thread",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					v := views.NewCreateThread(e.deps)
					v.Mount(c.Context)
					defer v.Close()
					if err := v.Submit(c.Context, c.String("title"), c.String("content")); err != nil {
						return exitError(err)
					}
					fmt.Fprintln(e.out, views.NoticeThreadCreated)
					return nil
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete one of your threads",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					v := views.NewMyThreads(e.deps)
					defer v.Close()
					if err := v.Delete(c.Context, c.Int64("id")); err != nil {
						return exitError(err)
					}
					fmt.Fprintln(e.out, views.NoticeThreadDeleted)
					return nil
				}),
			},
		},
	}
}

func threadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "thread", Required: true, Usage: "thread id"},
		&cli.StringFlag{Name: "title", Usage: "thread title shown in the heading"},
	}
}

func groupState(c *cli.Context) nav.GroupState {
	return nav.GroupState{ThreadID: c.Int64("thread"), Title: c.String("title")}
}

func groupCommand() *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Show the discussion of a thread",
		Flags: threadFlags(),
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewGroup(e.deps, groupState(c))
			v.Mount(c.Context)
			defer v.Close()
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printGroup(e.out, st)
			return nil
		}),
	}
}

func respondCommand() *cli.Command {
	return &cli.Command{
		Name:  "respond",
		Usage: "Post a message in a thread",
		Flags: append(threadFlags(), &cli.StringFlag{Name: "content", Required: true}),
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewGroup(e.deps, groupState(c))
			defer v.Close()
			if err := v.Send(c.Context, c.String("content")); err != nil {
				return exitError(err)
			}
			printGroup(e.out, v.State())
			return nil
		}),
	}
}

func voteCommand() *cli.Command {
	return &cli.Command{
		Name:  "vote",
		Usage: "Like or dislike a response",
		Flags: append(threadFlags(),
			&cli.Int64Flag{Name: "response", Required: true, Usage: "response id"},
			&cli.BoolFlag{Name: "up", Usage: "like"},
			&cli.BoolFlag{Name: "down", Usage: "dislike"},
		),
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.Bool("up") == c.Bool("down") {
				return cli.Exit("Pass exactly one of --up or --down.", 1)
			}
			v := views.NewGroup(e.deps, groupState(c))
			v.Mount(c.Context)
			defer v.Close()
			if err := v.Vote(c.Context, c.Int64("response"), c.Bool("up")); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(e.out, views.NoticeVoteRegistered)
			return nil
		}),
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List users with their ratings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "filter by name or username"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewUserRatings(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			v.SetQuery(c.String("search"))
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printUsers(e.out, st)
			return nil
		}),
	}
}

func rateCommand() *cli.Command {
	return &cli.Command{
		Name:  "rate",
		Usage: "Rate a user from 1 to 5 stars",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "user", Required: true},
			&cli.IntFlag{Name: "stars", Required: true},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewUserRatings(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			id := c.Int64("user")
			if err := v.Rate(c.Context, id, c.Int("stars")); err != nil {
				return exitError(err)
			}
			fmt.Fprintf(e.out, "Rated. %s\n", starBar(v.DisplayedStars(id)))
			return nil
		}),
	}
}

func roleCommand() *cli.Command {
	return &cli.Command{
		Name:  "role",
		Usage: "Manage user roles (admins only)",
		Subcommands: []*cli.Command{
			{
				Name:  "toggle",
				Usage: "Switch a user between member and admin",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user", Required: true},
				},
				Action: withEnv(func(c *cli.Context, e *env) error {
					v := views.NewAdminPanel(e.deps)
					v.Mount(c.Context)
					defer v.Close()
					id := c.Int64("user")
					if err := v.ToggleRole(c.Context, id); err != nil {
						return exitError(err)
					}
					for _, u := range v.State().Users {
						if u.ID == id {
							fmt.Fprintf(e.out, "%s is now %s.\n", u.Username, roleName(u.Role))
						}
					}
					return nil
				}),
			},
		},
	}
}

func notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "notifications",
		Usage: "Show notifications and your unread votes",
		Action: withEnv(func(c *cli.Context, e *env) error {
			v := views.NewDashboard(e.deps)
			v.Mount(c.Context)
			defer v.Close()
			v.ToggleNotifications()
			st := v.State()
			if st.Error != "" {
				return cli.Exit(st.Error, 1)
			}
			printNotifications(e.out, st)
			return nil
		}),
	}
}

// passwordFlag returns the flag value or reads one line from stdin.
func passwordFlag(c *cli.Context, name, prompt string) (string, error) {
	if p := c.String(name); p != "" {
		return p, nil
	}
	fmt.Fprint(c.App.ErrWriter, prompt)
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
