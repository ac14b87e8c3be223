package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"
	"todoList/internal/client"
	"todoList/internal/models/task"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverURL string
	email     string
	password  string
	timeout   time.Duration
	verbose   bool

	search      string
	status      string
	title       string
	description string
	name        string

	rootCmd = &cobra.Command{
		Use:           "todo",
		Short:         "Консольный клиент списка задач",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	signUpCmd = &cobra.Command{
		Use:   "signup",
		Short: "Зарегистрироваться",
		RunE:  runSignUp,
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Показать задачи",
		RunE:  runList,
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Показать статистику",
		RunE:  runStats,
	}
	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Создать задачу",
		RunE:  runAdd,
	}
	editCmd = &cobra.Command{
		Use:   "edit [id]",
		Short: "Изменить заголовок или описание",
		Args:  cobra.ExactArgs(1),
		RunE:  runEdit,
	}
	toggleCmd = &cobra.Command{
		Use:   "toggle [id]",
		Short: "Переключить выполнение",
		Args:  cobra.ExactArgs(1),
		RunE:  runToggle,
	}
	rmCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Удалить задачу",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serverURL, "server", envOr("TODO_SERVER", "http://localhost:8080"), "адрес API")
	flags.StringVar(&email, "email", os.Getenv("TODO_EMAIL"), "email пользователя")
	flags.StringVar(&password, "password", os.Getenv("TODO_PASSWORD"), "пароль")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "таймаут одного запроса")
	flags.BoolVarP(&verbose, "verbose", "v", false, "подробный лог")

	signUpCmd.Flags().StringVar(&name, "name", "", "имя")
	listCmd.Flags().StringVar(&search, "search", "", "поиск по заголовку и описанию")
	listCmd.Flags().StringVar(&status, "status", string(client.StatusAll), "all, active или completed")
	addCmd.Flags().StringVar(&title, "title", "", "заголовок")
	addCmd.Flags().StringVar(&description, "description", "", "описание")
	editCmd.Flags().StringVar(&title, "title", "", "новый заголовок")
	editCmd.Flags().StringVar(&description, "description", "", "новое описание")

	rootCmd.AddCommand(signUpCmd, listCmd, statsCmd, addCmd, editCmd, toggleCmd, rmCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}

type env struct {
	api     *client.API
	session *client.Session
	log     *zap.Logger
}

func connect(ctx context.Context, signIn bool) (*env, error) {
	log := zap.NewNop()
	if verbose {
		built, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = built
	}

	api, err := client.New(serverURL, client.WithTimeout(timeout), client.WithLogger(log))
	if err != nil {
		return nil, err
	}
	e := &env{api: api, session: client.NewSession(api), log: log}
	if !signIn {
		return e, nil
	}

	if email == "" || password == "" {
		return nil, errors.New("нужны --email и --password (или TODO_EMAIL, TODO_PASSWORD)")
	}
	if err := e.session.SignIn(ctx, email, password); err != nil {
		return nil, errors.New(client.UserMessage(err))
	}
	return e, nil
}

func runSignUp(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), false)
	if err != nil {
		return err
	}
	if err := e.session.SignUp(cmd.Context(), email, name, password); err != nil {
		return errors.New(client.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Зарегистрирован %s\n", e.session.State().Identity.Email)
	return nil
}

func loadList(e *env, params client.Params) (*client.TaskList, error) {
	list := client.NewTaskList(e.api, e.session.CanFetch,
		client.WithParams(params),
		client.WithListLogger(e.log))
	list.Sync()
	list.Wait()

	if msg := list.State().Error; msg != "" {
		list.Close()
		return nil, errors.New(msg)
	}
	return list, nil
}

func runList(cmd *cobra.Command, args []string) error {
	params := client.Params{Search: search, Status: client.StatusFilter(status)}
	switch params.Status {
	case client.StatusAll, client.StatusActive, client.StatusCompleted:
	default:
		return fmt.Errorf("неизвестный --status %q", status)
	}

	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	list, err := loadList(e, params)
	if err != nil {
		return err
	}
	defer list.Close()

	printTasks(cmd.OutOrStdout(), list.State())
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	stats, err := e.api.Stats(cmd.Context())
	if err != nil {
		return errors.New(client.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "всего: %d, активных: %d, выполнено: %d\n", stats.Total, stats.Active, stats.Completed)
	return nil
}

// mutator собирает первую ошибку колбэка, чтобы вернуть её из команды
func mutator(cmd *cobra.Command, e *env, failure *string) *client.Mutator {
	return client.NewMutator(e.api, e.session.CanFetch,
		client.OnSuccess(func(message string, t *task.Task) {
			if t != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", message, t.ID)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
		}),
		client.OnError(func(message string) { *failure = message }),
		client.WithMutatorLogger(e.log))
}

func runAdd(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	var failure string
	if mutator(cmd, e, &failure).Create(cmd.Context(), task.Input{Title: title, Description: description}) == nil && failure != "" {
		return errors.New(failure)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch task.Patch
	if cmd.Flags().Changed("title") {
		patch.Title = &title
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &description
	}
	if patch.IsEmpty() {
		return errors.New("укажите --title и/или --description")
	}

	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	var failure string
	if mutator(cmd, e, &failure).Update(cmd.Context(), args[0], patch) == nil && failure != "" {
		return errors.New(failure)
	}
	return nil
}

func runToggle(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	list, err := loadList(e, client.Params{Status: client.StatusAll})
	if err != nil {
		return err
	}
	defer list.Close()

	if err := list.ToggleTask(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, client.ErrUnknownTask) {
			return errors.New("Task not found")
		}
		list.Wait()
		return errors.New(client.UserMessage(err))
	}
	printTasks(cmd.OutOrStdout(), list.State())
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	e, err := connect(cmd.Context(), true)
	if err != nil {
		return err
	}
	var failure string
	if !mutator(cmd, e, &failure).Delete(cmd.Context(), args[0]) && failure != "" {
		return errors.New(failure)
	}
	return nil
}

func printTasks(out io.Writer, state client.State) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tСТАТУС\tЗАГОЛОВОК\tСОЗДАНА")
	for _, t := range state.Tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, mark, t.Title, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Fprintf(out, "всего: %d, активных: %d, выполнено: %d\n", state.Stats.Total, state.Stats.Active, state.Stats.Completed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
