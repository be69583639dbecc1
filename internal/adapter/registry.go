package adapter

import (
	"fmt"
	"sort"

	"DanceSync/internal/config"
	"DanceSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// SourceRegistry 按配置实例化的适配器集合
type SourceRegistry struct {
	cfg      map[string]config.SourceConfig
	logger   *logrus.Logger
	adapters map[string]interfaces.SourceAdapter
}

// NewSourceRegistry 为 sources 配置中每个 enabled 的数据源创建适配器实例
func NewSourceRegistry(sources map[string]config.SourceConfig, logger *logrus.Logger) *SourceRegistry {
	r := &SourceRegistry{
		cfg:      sources,
		logger:   logger,
		adapters: make(map[string]interfaces.SourceAdapter),
	}
	r.initAdaptersFromFactories()
	return r
}

// initAdaptersFromFactories 从工厂函数注册表初始化适配器实例
func (r *SourceRegistry) initAdaptersFromFactories() {
	r.logger.WithField("factory_sources", ListFactories()).Debug("已注册的适配器工厂")

	for name, sourceCfg := range r.cfg {
		if !sourceCfg.Enabled {
			r.logger.WithField("source", name).Info("数据源未启用，跳过")
			continue
		}
		factory, ok := GetFactory(name)
		if !ok {
			r.logger.WithField("source", name).Error("未找到对应的工厂函数（init未注册？）")
			continue
		}

		cfg := sourceCfg
		adapterIns := factory(&cfg, r.logger)
		if adapterIns == nil {
			r.logger.WithField("source", name).Error("工厂函数返回nil适配器实例")
			continue
		}
		if adapterIns.GetName() != name {
			r.logger.WithFields(logrus.Fields{
				"config_source":  name,
				"adapter_source": adapterIns.GetName(),
			}).Error("适配器名称与配置不匹配")
			continue
		}
		r.adapters[name] = adapterIns
	}

	r.logger.WithField("sources", r.ListSources()).Info("适配器实例初始化完成")
}

// ListSources 已初始化的数据源名称（有序）
func (r *SourceRegistry) ListSources() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Adapters 按名称顺序返回全部适配器实例
func (r *SourceRegistry) Adapters() []interfaces.SourceAdapter {
	out := make([]interfaces.SourceAdapter, 0, len(r.adapters))
	for _, n := range r.ListSources() {
		out = append(out, r.adapters[n])
	}
	return out
}

// GetAdapter 获取适配器实例
func (r *SourceRegistry) GetAdapter(name string) (interfaces.SourceAdapter, error) {
	adapterIns, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("数据源%s未初始化适配器实例（已初始化：%v）", name, r.ListSources())
	}
	return adapterIns, nil
}

// Count 已初始化实例的数量
func (r *SourceRegistry) Count() int {
	return len(r.adapters)
}
