package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"agropath/config"
	"agropath/db"
	"agropath/handler"
	"agropath/logistics"
	"agropath/menu"
	"agropath/planner"
	"agropath/routing"
)

const (
	seedFile        = "data/sites.json"
	shutdownTimeout = 10 * time.Second
)

// stores 站点与用户存储
type stores interface {
	db.SiteStore
	db.UserStore
}

func main() {
	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	costCfg, err := logistics.ConfigFromEnv()
	if err != nil {
		log.Fatalf("加载成本参数失败: %v", err)
	}

	// 路由服务: OSRM + 内存缓存
	provider := routing.NewCachedProvider(
		routing.NewOSRMProvider(cfg.OSRMBaseURL, cfg.OSRMProfile, cfg.ProviderTimeout),
		routing.WithTTL(cfg.RouteCacheTTL),
		routing.WithLogger(log.Printf),
	)
	orch := planner.New(provider,
		planner.WithCostConfig(costCfg),
		planner.WithCallTimeout(cfg.ProviderTimeout),
		planner.WithConcurrency(cfg.PlannerConcurrency),
	)

	store, err := openStore(cfg.DB)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "serve":
		if err := serve(ctx, cfg, store, orch); err != nil {
			log.Fatalf("服务器异常退出: %v", err)
		}
	case "menu":
		err := menu.New(os.Stdin, os.Stdout, store, orch, cfg.ArtifactDir).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("菜单异常退出: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "用法: %s [serve|menu]\n", os.Args[0])
		os.Exit(2)
	}
}

// openStore 配置了数据库时使用 postgres, 否则使用内置站点的内存存储
func openStore(cfg config.DBConfig) (stores, error) {
	if !cfg.Enabled() {
		log.Println("未配置 DB_HOST, 使用内存存储和内置站点")
		sites, err := db.LoadSites(seedFile)
		if err != nil {
			log.Printf("读取 %s 失败, 使用内置站点: %v", seedFile, err)
			sites = db.DefaultSites()
		}
		return db.NewMemoryStore(sites), nil
	}
	conn, err := db.Open(cfg, seedFile)
	if err != nil {
		return nil, err
	}
	return db.NewGormStore(conn), nil
}

func serve(ctx context.Context, cfg *config.Config, store stores, orch *planner.Orchestrator) error {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// 未配置时使用随机密钥, 重启后旧 Token 失效
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("生成 JWT 密钥失败: %w", err)
		}
		log.Println("警告: 未设置 JWT_SECRET, 使用随机密钥")
	}

	h := handler.New(store, store, orch, secret, cfg.ArtifactDir)

	r := gin.Default()
	handler.SetupRoutes(r, h)

	// 规划接口要等待多次路由服务调用, 写超时按服务超时放宽
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.ProviderTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", srv.Addr, err)
	}

	addr := srv.Addr
	log.Printf("服务器启动中, 访问地址: http://localhost%s", addr)
	log.Println("API:")
	log.Println("  - GET    /ping")
	log.Println("  - POST   /api/login, /api/register")
	log.Println("  - GET    /api/sites?kind=farm|collection_center|port")
	log.Println("  - GET    /api/sites/:id")
	log.Println("  - POST   /api/sites          (需要 Token)")
	log.Println("  - GET    /api/cost?distance_km=")
	log.Println("  - POST   /api/plan/collection")
	log.Println("  - GET    /api/plan/network")

	return serveHTTP(ctx, srv, ln)
}

// serveHTTP 在 ln 上提供服务, ctx 结束后优雅关闭
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭超时: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("服务器已停止")
	return nil
}
