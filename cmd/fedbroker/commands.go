package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/BaSui01/fedbroker/api"
	"github.com/BaSui01/fedbroker/client"
)

// =============================================================================
// 🧑‍💻 客户端命令
// =============================================================================

// clientFlags 是客户端命令共享的参数
type clientFlags struct {
	fs         *flag.FlagSet
	brokerURL  *string
	configPath *string
	user       *string
}

func newClientFlags(name string) *clientFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &clientFlags{
		fs:         fs,
		brokerURL:  fs.String("broker", "", "Broker URL (overrides client.broker_url)"),
		configPath: fs.String("config", "", "Path to config file"),
		user:       fs.String("user", "admin", "Acting user or participant ID"),
	}
}

// connect 加载配置并创建客户端。日志写到 stderr，stdout 只留给命令输出。
func (f *clientFlags) connect(args []string) (*client.Client, *zap.Logger, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig(*f.configPath, "")
	if err != nil {
		return nil, nil, err
	}
	if *f.brokerURL != "" {
		cfg.Client.BrokerURL = *f.brokerURL
	}

	logCfg := cfg.Log
	logCfg.OutputPaths = []string{"stderr"}
	logger := initLogger(logCfg)

	c, err := client.NewFromConfig(cfg.Client, logger)
	if err != nil {
		return nil, nil, err
	}
	return c, logger, nil
}

func runCreateTask(args []string) error {
	f := newClientFlags("create-task")
	name := f.fs.String("name", "", "Task name")
	definition := f.fs.String("definition", "", "Task definition (JSON or plain text)")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	var def any
	if *definition != "" {
		def = api.Raw(api.FromText(*definition))
	}
	if err := c.User(*f.user).CreateTask(context.Background(), *name, def); err != nil {
		return err
	}
	fmt.Printf("task %q created\n", *name)
	return nil
}

func runTasks(args []string) error {
	f := newClientFlags("tasks")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	tasks, err := c.User(*f.user).Tasks(context.Background())
	if err != nil {
		return err
	}
	renderTasks(os.Stdout, tasks)
	return nil
}

func runJoin(args []string) error {
	f := newClientFlags("join")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	if err := c.Participant(*f.user).JoinTask(context.Background()); err != nil {
		return err
	}
	fmt.Printf("join requested for %s\n", *f.user)
	return nil
}

func runJoined(args []string) error {
	f := newClientFlags("joined")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	tasks, err := c.User(*f.user).JoinedTasks(context.Background())
	if err != nil {
		return err
	}
	renderTasks(os.Stdout, tasks)
	return nil
}

func runParticipants(args []string) error {
	f := newClientFlags("participants")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	roster, err := c.Aggregator().Participants(context.Background())
	if err != nil {
		return err
	}
	renderParticipants(os.Stdout, roster)
	return nil
}

func runReset(args []string) error {
	f := newClientFlags("reset")
	c, _, err := f.connect(args)
	if err != nil {
		return err
	}
	if err := c.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Println("broker reset")
	return nil
}

// =============================================================================
// 📋 输出
// =============================================================================

func renderTasks(w io.Writer, tasks []api.TaskView) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Task", "Status", "Added"})
	for _, t := range tasks {
		table.Append([]string{t.ID, t.TaskName, t.Status, t.Added})
	}
	table.Render()
}

func renderParticipants(w io.Writer, roster []string) {
	if len(roster) == 0 {
		fmt.Fprintln(w, "no confirmed participants")
		return
	}
	fmt.Fprintln(w, strings.Join(roster, "\n"))
}
