package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rws-framework/rws-lambda/awsclient"
	"github.com/rws-framework/rws-lambda/cloudlogs"
	"github.com/rws-framework/rws-lambda/command"
	"github.com/rws-framework/rws-lambda/config"
	"github.com/rws-framework/rws-lambda/filesystem"
	"github.com/rws-framework/rws-lambda/function"
	"github.com/rws-framework/rws-lambda/hooks"
	"github.com/rws-framework/rws-lambda/internal/poll"
	"github.com/rws-framework/rws-lambda/internal/shell"
	"github.com/rws-framework/rws-lambda/loader"
	"github.com/rws-framework/rws-lambda/metrics"
	"github.com/rws-framework/rws-lambda/network"
	"github.com/rws-framework/rws-lambda/packaging"
	"github.com/rws-framework/rws-lambda/permission"
	"github.com/rws-framework/rws-lambda/util"
)

const metricsJob = "rws-lambda"

type options struct {
	configPath     string
	verbose        bool
	redeployLoader bool
	subnetID       string
	noLogs         bool
}

func main() {
	os.Exit(execute())
}

func execute() int {
	opts := options{}
	code := 0

	root := &cobra.Command{
		Use:           "rws-lambda",
		Short:         "Deploy and manage RWS functions and their shared file system.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file.")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging.")

	lambdaCmd := &cobra.Command{
		Use:   "lambda <action[:name[:arg]]>",
		Short: "Run a lambda sub-command: deploy, undeploy, invoke, delete, list or open-to-web.",
		Example: "  rws-lambda lambda deploy:hello\n" +
			"  rws-lambda lambda deploy:hello:ping\n" +
			"  rws-lambda lambda deploy:modules\n" +
			"  rws-lambda lambda invoke:hello:ping\n" +
			"  rws-lambda lambda list",
		RunE: func(c *cobra.Command, args []string) error {
			cmd, err := command.Parse(args)
			if err != nil {
				return err
			}
			cmd.RedeployLoader = opts.redeployLoader
			cmd.SubnetID = opts.subnetID

			err = run(c.Context(), opts, cmd)
			code = command.ExitCode(err)
			return err
		},
	}
	lambdaCmd.Flags().BoolVar(&opts.redeployLoader, "redeploy-loader", false, "Rebuild and redeploy the modules loader function first.")
	lambdaCmd.Flags().StringVar(&opts.subnetID, "subnet", "", "Subnet to place functions in, overriding the resolved one.")
	lambdaCmd.Flags().BoolVar(&opts.noLogs, "no-logs", false, "Don't follow function logs while invoking.")
	root.AddCommand(lambdaCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if code == 0 {
			code = command.ExitCode(&command.ErrUsage{Message: err.Error()})
		}
	}
	return code
}

func run(parent context.Context, opts options, cmd command.Command) error {
	logCfg := zap.NewDevelopmentConfig()
	if !opts.verbose {
		logCfg = zap.NewProductionConfig()
		logCfg.DisableStacktrace = true
	}
	log, err := logCfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log.Debug("Configuration loaded.", zap.Object("config", cfg))

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	clients, err := awsclient.New(awsclient.Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKey,
		SecretAccessKey: cfg.AWS.SecretKey,
		SessionToken:    cfg.AWS.SessionToken,
		Endpoint:        cfg.AWS.Endpoint,
	}, log)
	if err != nil {
		return err
	}

	guard, ctx := util.NewInterruptGuard(parent)
	defer guard.Stop()

	orchestrator := newOrchestrator(cfg, clients, log)
	if opts.noLogs {
		orchestrator.Logs = nil
	}

	started := time.Now()
	err = orchestrator.Run(ctx, cmd)
	if guard.Interrupted() {
		log.Warn("Command interrupted.", zap.String("command", cmd.String()))
	}

	ship(cfg, clients, registry, cmd, time.Since(started), err != nil, log)
	return err
}

func newOrchestrator(cfg *config.Config, clients *awsclient.Registry, log *zap.Logger) *command.Orchestrator {
	waiter := poll.Waiter{Policy: cfg.Polling, Log: log.Named("poll")}

	net := network.Provisioner{
		Service: clients.EC2(),
		Region:  clients.Region(),
		Log:     log.Named("network"),
	}

	return &command.Orchestrator{
		Config:  cfg,
		Network: net,
		Permissions: permission.Checker{
			Service: clients.IAM(),
			Log:     log.Named("permission"),
		},
		FileSystems: &filesystem.Provisioner{
			Service:        clients.EFS(),
			Network:        net,
			Waiter:         waiter,
			AccessPoint:    filesystem.DefaultAccessPoint,
			SecurityGroups: cfg.Lambda.SecurityGroup,
			ClientToken:    func() string { return uuid.NewV4().String() },
			Log:            log.Named("filesystem"),
		},
		Packager: packaging.Archiver{
			Shell: shell.Runner{Stdout: os.Stderr, Log: log.Named("shell")},
			Log:   log.Named("packaging"),
		},
		Functions: function.Manager{
			Service: clients.Lambda(),
			Waiter:  waiter,
			Log:     log.Named("function"),
		},
		Hooks: hooks.Default(log.Named("hooks")),
		Uploader: loader.Uploader{
			Service: clients.S3Uploader(),
			Bucket:  cfg.Lambda.Bucket,
			Log:     log.Named("loader"),
		},
		Logs: cloudlogs.Tailer{
			Service: clients.CloudWatchLogs(),
			Out:     os.Stdout,
			Log:     log.Named("logs"),
		},
		Out: os.Stdout,
		Log: log,
	}
}

// ship sends command metrics to the configured sinks. Failures are logged only.
func ship(cfg *config.Config, clients *awsclient.Registry, registry *prometheus.Registry, cmd command.Command, duration time.Duration, failed bool, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Metrics.CloudWatch {
		publisher := metrics.Publisher{
			Service:   clients.CloudWatch(),
			Namespace: cfg.Metrics.Namespace,
			Log:       log.Named("metrics"),
		}
		if err := publisher.PublishCommand(ctx, string(cmd.Action), duration, failed); err != nil {
			log.Warn("Unable to publish command metrics.", zap.Error(err))
		}
	}

	if cfg.Metrics.Pushgateway != "" {
		if err := metrics.Push(ctx, cfg.Metrics.Pushgateway, metricsJob, registry); err != nil {
			log.Warn("Unable to push metrics.", zap.String("url", cfg.Metrics.Pushgateway), zap.Error(err))
		}
	}
}
