// Package menu 命令行交互菜单
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"agropath/algo"
	"agropath/db"
	"agropath/export"
	"agropath/logistics"
	"agropath/model"
	"agropath/planner"
)

// Menu 文本菜单
type Menu struct {
	in          io.Reader
	out         io.Writer
	sites       db.SiteStore
	planner     *planner.Orchestrator
	artifactDir string

	lines   chan string
	readErr error // lines 关闭后有效
}

// New 创建菜单
func New(in io.Reader, out io.Writer, sites db.SiteStore, p *planner.Orchestrator, artifactDir string) *Menu {
	return &Menu{
		in:          in,
		out:         out,
		sites:       sites,
		planner:     p,
		artifactDir: artifactDir,
	}
}

const mainMenu = `
===== 大豆物流路线系统 =====
1. 查看生产农场
2. 查看收储中心
3. 查看港口
4. 规划路线并导出地图数据
5. 成本计算器
0. 退出
请选择: `

// Run 循环读取选项直到输入 0、输入结束或 ctx 结束
// ctx 结束时返回 ctx.Err(), 不等待阻塞中的读取
func (m *Menu) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	m.startReader(done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(m.out, mainMenu)
		choice, ok := m.readLine(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			return m.readErr
		}

		var err error
		switch choice {
		case "1":
			err = m.listSites(ctx, model.SiteFarm, "生产农场")
		case "2":
			err = m.listSites(ctx, model.SiteCollectionCenter, "收储中心")
		case "3":
			err = m.listSites(ctx, model.SitePort, "港口")
		case "4":
			err = m.planNetwork(ctx)
		case "5":
			m.costCalculator(ctx)
		case "0":
			fmt.Fprintln(m.out, "再见!")
			return nil
		default:
			fmt.Fprintln(m.out, "无效的选项, 请重新输入")
		}
		if err != nil {
			fmt.Fprintf(m.out, "错误: %v\n", err)
		}
	}
}

// startReader 在后台逐行读取输入, 读完或出错时关闭 lines
func (m *Menu) startReader(done <-chan struct{}) {
	m.lines = make(chan string)
	go func() {
		defer close(m.lines)
		sc := bufio.NewScanner(m.in)
		for sc.Scan() {
			select {
			case m.lines <- sc.Text():
			case <-done:
				return
			}
		}
		m.readErr = sc.Err()
	}()
}

func (m *Menu) readLine(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-m.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		return "", false
	}
}

func (m *Menu) listSites(ctx context.Context, kind model.SiteKind, title string) error {
	sites, err := m.sites.ListSites(ctx, kind)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\n%s (%d):\n", title, len(sites))
	for _, s := range sites {
		fmt.Fprintf(m.out, "  %-32s %10.6f, %11.6f  %s\n", s.Name, s.Lat, s.Lng, s.Info)
	}
	return nil
}

func (m *Menu) planNetwork(ctx context.Context) error {
	farms, center, port, err := db.NetworkSites(ctx, m.sites)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "\n正在规划 %d 个农场 -> %s -> %s ...\n", len(farms), center.Name, port.Name)

	res, err := m.planner.PlanNetwork(ctx, farms, center, port)
	if err != nil {
		return err
	}

	for _, leg := range res.Legs() {
		fmt.Fprintf(m.out, "  %-32s -> %-32s %8.2f km", leg.Label, leg.Destination.Name, leg.ProviderDistanceKm)
		if leg.Cost != nil {
			fmt.Fprintf(m.out, "  $%.2f/ton", leg.Cost.TotalCostPerTon)
		}
		fmt.Fprintln(m.out)
	}
	for _, f := range res.Failures() {
		fmt.Fprintf(m.out, "  %-32s 失败 (%s): %v\n", f.Label, f.Stage, f.Err)
	}

	s := res.Summary()
	fmt.Fprintf(m.out, "网络图: %d 个节点, %d 条边, 总权重 %.2f km\n", s.Nodes, s.Edges, s.TotalWeightKm)
	if res.PortLeg != nil {
		fmt.Fprintf(m.out, "收储中心到港口:\n%s", algo.FormatPath(res.PortLeg.Path))
	}
	if s.Legs == 0 {
		return nil
	}

	path, err := export.WriteNetwork(m.artifactDir, export.NetworkSites(farms, center, port), res)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "地图数据已写入 %s\n", path)
	return nil
}

// costCalculator 输入单程距离, 输出每吨成本明细; 非法输入提示后继续
func (m *Menu) costCalculator(ctx context.Context) {
	cfg := m.planner.CostConfig()
	for {
		fmt.Fprint(m.out, "\n请输入单程距离 (km), 直接回车返回: ")
		line, ok := m.readLine(ctx)
		if !ok || line == "" {
			return
		}

		km, err := logistics.ParseDistance(line)
		if err != nil {
			fmt.Fprintf(m.out, "输入无效: %v\n", err)
			continue
		}
		b, err := logistics.Cost(km, cfg)
		if err != nil {
			fmt.Fprintf(m.out, "计算失败: %v\n", err)
			continue
		}
		fmt.Fprint(m.out, logistics.FormatBreakdown(b, cfg))
	}
}
