package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marcus/taskbot/internal/models"
	"github.com/marcus/taskbot/internal/output"
	"github.com/marcus/taskbot/internal/registry"
)

// roleValue is a --role flag that accepts role names and legacy aliases
type roleValue struct {
	role models.Role
}

var _ pflag.Value = (*roleValue)(nil)

func (r *roleValue) String() string { return string(r.role) }

func (r *roleValue) Set(s string) error {
	role := models.NormalizeRole(s)
	if !models.IsValidRole(role) {
		names := make([]string, 0, 3)
		for _, x := range models.AllRoles() {
			names = append(names, string(x))
		}
		return fmt.Errorf("must be one of %s", strings.Join(names, ", "))
	}
	r.role = role
	return nil
}

func (r *roleValue) Type() string { return "role" }

var usersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "List and edit registered users",
	GroupID: "data",
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		users, err := reg.List(cmd.Context())
		if err != nil {
			output.Error("list users: %v", err)
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No users registered")
			return nil
		}
		names := make(map[int64]string, len(users))
		for _, u := range users {
			names[u.ID] = u.DisplayName()
		}
		for i := range users {
			fmt.Println(output.FormatUser(&users[i], names))
		}
		return nil
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add <telegram-id> <name>",
	Short: "Register a user without going through the bot",
	Long: `Registers a user the same way the bot's /start dialog does. The first
user ever registered becomes director.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram id %q", args[0])
		}
		role := addRole.role
		if role == "" {
			role = models.RoleEmployee
		}

		reg, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		u, err := reg.Register(cmd.Context(), id, strings.Join(args[1:], " "), role)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("registered %s as %s", u.DisplayName(), u.Role)
		return nil
	},
}

var usersSetCmd = &cobra.Command{
	Use:   "set <telegram-id>",
	Short: "Change a user's role, department or superior",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram id %q", args[0])
		}
		flags := cmd.Flags()
		if !flags.Changed("role") && !flags.Changed("dept") && !flags.Changed("superior") {
			return fmt.Errorf("nothing to change: use --role, --dept or --superior")
		}

		reg, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()
		ctx := cmd.Context()

		var u *models.User
		if flags.Changed("role") {
			if u, err = reg.SetRole(ctx, id, setRole.role); err != nil {
				output.Error("%v", err)
				return err
			}
		}
		if flags.Changed("dept") {
			dept, _ := flags.GetString("dept")
			if u, err = reg.SetDepartment(ctx, id, dept); err != nil {
				output.Error("%v", err)
				return err
			}
		}
		if flags.Changed("superior") {
			sup, _ := flags.GetInt64("superior")
			if u, err = reg.SetSuperior(ctx, id, sup); err != nil {
				output.Error("%v", err)
				return err
			}
		}
		output.Success("updated %s", output.FormatUser(u, nil))
		return nil
	},
}

var usersTeamCmd = &cobra.Command{
	Use:   "team <telegram-id>",
	Short: "Show everyone below a user in the hierarchy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram id %q", args[0])
		}
		reg, closeStore, err := openRegistry()
		if err != nil {
			return err
		}
		defer closeStore()

		subs, err := reg.ListSubordinates(cmd.Context(), id)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if len(subs) == 0 {
			fmt.Println("No subordinates")
			return nil
		}
		for i := range subs {
			fmt.Println(output.FormatUser(&subs[i], nil))
		}
		return nil
	},
}

var (
	addRole roleValue
	setRole roleValue
)

func openRegistry() (*registry.Registry, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg.Storage, newLogger(cfg.Log))
	if err != nil {
		return nil, nil, err
	}
	return registry.New(st), func() { st.Close() }, nil
}

func init() {
	usersListCmd.Flags().Bool("json", false, "output JSON")
	usersAddCmd.Flags().Var(&addRole, "role", "employee, manager or director")
	usersSetCmd.Flags().Var(&setRole, "role", "employee, manager or director")
	usersSetCmd.Flags().String("dept", "", "department label")
	usersSetCmd.Flags().Int64("superior", 0, "telegram id of the user's superior")

	usersCmd.AddCommand(usersListCmd, usersAddCmd, usersSetCmd, usersTeamCmd)
	rootCmd.AddCommand(usersCmd)
}
