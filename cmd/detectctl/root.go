package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"detectd/internal/config"
	"detectd/internal/convert"
	"detectd/internal/deploy"
	"detectd/internal/execx"
	"detectd/internal/logging"
	"detectd/internal/training"
)

// Config carries the persistent flags.
type Config struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
}

// newRunner is swapped in tests to record commands instead of executing them.
var newRunner = func(out, errOut io.Writer) execx.Runner { return execx.ExecRunner{Stdout: out, Stderr: errOut} }

// MainWithArgs runs detectctl and returns the process exit code.
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	root := buildRootCmd(&Config{LogLevel: "info", LogFormat: "console"})
	root.SetArgs(args)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "detectctl:", err)
		return 1
	}
	return 0
}

func buildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "detectctl",
		Short:         "Dataset, training and deployment tools for detectd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json|console")
	root.PersistentFlags().StringVar(&cfg.ConfigPath, "config", "", "detectd config file supplying Azure defaults")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Init(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	}
	root.AddCommand(convertCmd(), trainCmd(), deployCmd(cfg))
	return root
}

func convertCmd() *cobra.Command {
	var (
		inputs      []string
		outDir      string
		width       int
		height      int
		classesFile string
		classPairs  []string
	)
	cmd := &cobra.Command{
		Use:     "convert",
		Short:   "Convert PixLab rectangle annotations to YOLO label files",
		Example: "  detectctl convert --input ann.json --out-dir labels --width 1280 --height 720 --class person=0",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			classes := map[string]int{}
			if classesFile != "" {
				m, err := convert.ClassesFromFile(classesFile)
				if err != nil {
					return err
				}
				classes = m
			}
			pairs, err := convert.ParseClassPairs(classPairs)
			if err != nil {
				return err
			}
			for k, v := range pairs {
				classes[k] = v
			}
			outs, err := convert.Paths(inputs, outDir, convert.Options{
				Width:   width,
				Height:  height,
				Classes: classes,
				Logger:  logging.For("convert"),
			})
			for _, o := range outs {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&inputs, "input", "i", nil, "Annotation JSON file or directory (repeatable)")
	f.StringVarP(&outDir, "out-dir", "o", ".", "Directory for the .txt label files")
	f.IntVar(&width, "width", 0, "Annotated image width in pixels")
	f.IntVar(&height, "height", 0, "Annotated image height in pixels")
	f.StringVar(&classesFile, "classes", "", "Label file (dataset YAML, JSON or text) giving class ids by position")
	f.StringSliceVar(&classPairs, "class", nil, "Class mapping name=id (repeatable)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func trainCmd() *cobra.Command {
	var o training.Options
	cmd := &cobra.Command{
		Use:     "train [-- extra yolo args]",
		Short:   "Train a detection model with the Ultralytics CLI",
		Example: "  detectctl train --data dataset.yaml --model yolov8n.pt --epochs 5\n  detectctl train --data dataset.yaml --model yolov8n.pt -- batch=8",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Extra = args
			r := newRunner(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return training.Run(cmd.Context(), r, o, logging.For("train"))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.Data, "data", "", "Dataset descriptor YAML")
	f.StringVar(&o.Model, "model", "", "Starting weights, e.g. yolov8n.pt")
	f.IntVar(&o.Epochs, "epochs", training.DefaultEpochs, "Training epochs")
	f.IntVar(&o.ImgSize, "imgsz", training.DefaultImgSize, "Training image size")
	f.StringVar(&o.Device, "device", "", "Device: cpu, 0, 0,1 (default: Ultralytics picks)")
	f.StringVar(&o.Project, "project", "", "Output directory root")
	f.StringVar(&o.Name, "name", "", "Run name")
	f.StringVar(&o.Binary, "yolo-bin", training.DefaultBinary, "Ultralytics CLI executable")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func deployCmd(cfg *Config) *cobra.Command {
	var o deploy.Options
	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Build the image in ACR and roll it out to an Azure Web App",
		Example: "  detectctl deploy --registry myacr --webapp detect-app --resource-group rg --image detectd:latest --dry-run",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// flags win over config file and environment
			c, err := config.Resolve(cfg.ConfigPath)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if !fl.Changed("registry") {
				o.Registry = c.AzureContainerRegistry
			}
			if !fl.Changed("webapp") {
				o.WebApp = c.AzureWebAppName
			}
			if !fl.Changed("resource-group") {
				o.ResourceGroup = c.AzureResourceGroup
			}
			if !fl.Changed("image") {
				o.Image = c.ImageName
			}
			r := newRunner(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return deploy.Run(cmd.Context(), r, o, logging.For("deploy"))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.Registry, "registry", "", "Azure Container Registry name (default AZURE_CONTAINER_REGISTRY)")
	f.StringVar(&o.WebApp, "webapp", "", "Azure Web App name (default AZURE_WEBAPP_NAME)")
	f.StringVar(&o.ResourceGroup, "resource-group", "", "Resource group of the Web App (default AZURE_RESOURCE_GROUP)")
	f.StringVar(&o.Image, "image", "", "Image repository:tag (default image_name)")
	f.StringVar(&o.Context, "context", ".", "Docker build context")
	f.BoolVar(&o.DryRun, "dry-run", false, "Only print the Azure CLI steps")
	f.StringVar(&o.AzBinary, "az-bin", "az", "Azure CLI executable")
	return cmd
}

