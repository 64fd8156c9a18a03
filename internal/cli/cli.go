package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fdkevin0/htmlview"
	"github.com/fdkevin0/htmlview/internal/web"
)

var (
	// 全局参数
	flagConfigFile string
	flagDebug      bool

	// serve 参数
	flagAddr            string
	flagSessionTTL      string
	flagShutdownTimeout string
	flagAllowedOrigins  []string
	flagMaxSourceBytes  int64

	// 导出参数
	flagOutputDir string
	flagMarkdown  bool
	flagStats     bool

	// config init 参数
	flagConfigPath string
	flagForce      bool
)

// newClipboard 返回 copy 命令使用的剪贴板
var newClipboard = func() htmlview.Clipboard {
	return htmlview.SystemClipboard{}
}

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "htmlview",
	Short: "HTML查看器 - 预览、格式化、复制和下载HTML",
	Long: `HTML查看器用于查看原始HTML：在沙箱中预览渲染效果，或切换为缩进格式化后的文本。
支持功能：
- 按标签边界逐行缩进格式化HTML
- 将格式化结果下载为 formatted.html
- 复制格式化结果到系统剪贴板
- 在浏览器中运行交互式查看器`,
	Example: `  # 格式化文件并输出到终端
  htmlview format page.html

  # 从标准输入读取
  cat page.html | htmlview format

  # 保存为 formatted.html
  htmlview download page.html --output-dir=./out

  # 启动浏览器查看器
  htmlview serve --addr=127.0.0.1:8080`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		htmlview.InitLogger(flagDebug)
	},
}

// formatCmd 格式化命令
var formatCmd = &cobra.Command{
	Use:   "format [FILE]",
	Short: "输出格式化后的HTML",
	Long:  `读取文件（省略或为 "-" 时读取标准输入），按标签边界缩进后输出到标准输出`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFormat,
}

// downloadCmd 下载命令
var downloadCmd = &cobra.Command{
	Use:   "download [FILE]",
	Short: "保存格式化结果为 formatted.html",
	Long:  `格式化输入并保存到输出目录，文件名固定为 formatted.html（--markdown 时为 formatted.md）`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDownload,
}

// copyCmd 复制命令
var copyCmd = &cobra.Command{
	Use:   "copy [FILE]",
	Short: "复制格式化结果到剪贴板",
	Long:  `格式化输入并写入系统剪贴板。复制失败只记录日志，不影响退出状态`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCopy,
}

// serveCmd 查看器服务命令
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动浏览器查看器",
	Long:  `在本地启动HTTP服务，提供可粘贴HTML、沙箱预览、格式化切换、复制和下载的页面`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// configCmd 配置命令
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "管理配置文件",
	Long:  `创建或查看配置文件`,
}

// configInitCmd 初始化配置命令
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "初始化默认配置文件",
	Long:  `将默认配置写入 htmlview.toml`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	defaultConfig := htmlview.NewDefaultConfig()

	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "启用调试日志")

	serveCmd.Flags().StringVar(&flagAddr, "addr", defaultConfig.Addr, "监听地址")
	serveCmd.Flags().StringVar(&flagSessionTTL, "session-ttl", defaultConfig.SessionTTL.String(), "会话空闲过期时间")
	serveCmd.Flags().StringVar(&flagShutdownTimeout, "shutdown-timeout", defaultConfig.ShutdownTimeout.String(), "优雅关闭超时")
	serveCmd.Flags().StringArrayVar(&flagAllowedOrigins, "allowed-origin", []string{}, "允许跨域访问的来源 (可重复)")
	serveCmd.Flags().Int64Var(&flagMaxSourceBytes, "max-source-bytes", defaultConfig.MaxSourceBytes, "单次提交HTML的最大字节数 (0 表示不限制)")

	downloadCmd.Flags().StringVar(&flagOutputDir, "output-dir", defaultConfig.OutputDir, "输出目录")
	downloadCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "导出为 Markdown (formatted.md)")

	formatCmd.Flags().BoolVar(&flagStats, "stats", false, "在标准错误输出文档统计")

	configInitCmd.Flags().StringVar(&flagConfigPath, "path", "htmlview.toml", "配置文件写入路径")
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "覆盖已存在的配置文件")

	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

// Execute 执行命令行程序
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig 构建运行时配置并按配置重设日志级别
func loadConfig(cmd *cobra.Command) (*runtimeConfig, error) {
	cfg, err := buildRuntimeConfig(cmd)
	if err != nil {
		return nil, err
	}
	htmlview.InitLogger(cfg.Debug)
	if cfg.ConfigFile != "" {
		slog.Debug("using config file", "path", cfg.ConfigFile)
	}
	return cfg, nil
}

// openInput 打开输入文件，省略或为 "-" 时使用标准输入
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, htmlview.NewIOError(fmt.Sprintf("打开输入文件失败: %s", args[0]), err)
	}
	return f, nil
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	in, err := openInput(cmd, args)
	if err != nil {
		return "", err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return "", htmlview.NewIOError("读取输入失败", err)
	}
	return string(data), nil
}

// runFormat 运行格式化
func runFormat(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	in, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	var source bytes.Buffer
	formatted, err := htmlview.FormatReader(io.TeeReader(in, &source))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if formatted != "" {
		fmt.Fprintln(out, formatted)
	}

	if flagStats {
		summary := htmlview.Summarize(source.String())
		errOut := cmd.ErrOrStderr()
		fmt.Fprintln(errOut, "=== 统计信息 ===")
		if summary.Title != "" {
			fmt.Fprintf(errOut, "标题: %s\n", summary.Title)
		}
		fmt.Fprintf(errOut, "片段数: %d\n", summary.Segments)
		fmt.Fprintf(errOut, "最大缩进: %d\n", summary.MaxDepth)
		fmt.Fprintf(errOut, "文本长度: %d\n", summary.TextLength)
		fmt.Fprintln(errOut, "================")
	}
	return nil
}

// runDownload 运行下载
func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}

	export := htmlview.Download(source)
	if cfg.App.Markdown {
		export, err = htmlview.MarkdownExport(source)
		if err != nil {
			return err
		}
	}

	writer := htmlview.NewExportWriter(cfg.App.OutputDir)
	path, err := writer.Write(export)
	if err != nil {
		return fmt.Errorf("保存文件失败: %w", err)
	}

	slog.Debug("export written", "path", path, "mime_type", export.MIMEType, "bytes", len(export.Content))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ 已保存到: %s\n", path)
	return nil
}

// runCopy 运行复制，失败只记录日志
func runCopy(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}

	session := htmlview.NewSession()
	session.SetSource(source)
	session.ToggleView()

	result := htmlview.Copy(cmdContext(cmd), newClipboard(), session)
	if !result.OK {
		slog.Warn("copy to clipboard failed", "reason", result.Reason)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ 已复制到剪贴板")
	return nil
}

// runServe 运行查看器服务
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(web.Options{
		SessionTTL:     cfg.App.SessionTTL,
		AllowedOrigins: cfg.App.AllowedOrigins,
		MaxSourceBytes: cfg.App.MaxSourceBytes,
		Clipboard:      newClipboard(),
		Logger:         slog.Default(),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "✓ 查看器已启动: http://%s/\n", cfg.App.Addr)
	if err := server.ListenAndServe(ctx, cfg.App.Addr, cfg.App.ShutdownTimeout); err != nil {
		return fmt.Errorf("查看器服务异常退出: %w", err)
	}
	return nil
}

// runConfigInit 初始化配置文件
func runConfigInit(cmd *cobra.Command, args []string) error {
	path := flagConfigPath
	if _, err := os.Stat(path); err == nil && !flagForce {
		return htmlview.NewValidationError(fmt.Sprintf("配置文件 %s 已存在，使用 --force 覆盖", path))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return htmlview.NewIOError("创建配置目录失败", err)
		}
	}

	var buf bytes.Buffer
	if err := htmlview.NewDefaultConfig().EncodeTOML(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return htmlview.NewIOError("保存配置文件失败", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ 默认配置文件已保存到: %s\n", path)
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
