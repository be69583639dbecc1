package adapter

import (
	"fmt"
	"sort"
	"sync"

	"DanceSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ========== 全局工厂函数注册表（依赖interfaces包） ==========
var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[string]interfaces.Factory)
)

// Register 供适配器init函数调用，注册工厂函数
func Register(name string, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("数据源%s的工厂函数不能为nil", name))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[name]; exists {
		logrus.Warnf("数据源%s的适配器已注册，将覆盖原有实现", name)
	}
	factoryRegistry[name] = factory
}

// GetFactory 获取指定数据源的工厂函数
func GetFactory(name string) (interfaces.Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factoryRegistry[name]
	return factory, ok
}

// ListFactories 列出所有已注册的工厂函数（有序）
func ListFactories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(factoryRegistry))
	for n := range factoryRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
