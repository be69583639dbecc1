package pipeline

import (
	"strconv"
	"time"
	"unicode/utf8"

	"DanceSync/internal/model"
)

// Resolver 字段级冲突裁决。每个字段按下面的全序取较大者，
// 因此合并结果与合并顺序无关（交换律、结合律），重复合并同一来源字段值不变：
//  1. 非空优先于空，且先于置信度比较：高置信度来源缺失的字段不会清掉低置信度来源给出的值
//  2. 置信度高者
//  3. 文本字段（标题/场馆/地址）取较长者；开始时间取精度高者（时间戳 > 仅日期，优先于置信度）
//  4. fetched_at 较晚者
//  5. 值与来源的字典序兜底
type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

// candidate 某个字段的一个候选取值
type candidate struct {
	present   bool
	precision int // 仅开始时间使用
	length    int // 仅文本字段使用
	value     string
	origin    model.Provenance
}

// beats 判断 a 是否严格优于 b
func (c candidate) beats(o candidate) bool {
	if c.present != o.present {
		return c.present
	}
	if !c.present {
		return false
	}
	if c.precision != o.precision {
		return c.precision > o.precision
	}
	if c.origin.Confidence != o.origin.Confidence {
		return c.origin.Confidence > o.origin.Confidence
	}
	if c.length != o.length {
		return c.length > o.length
	}
	if !c.origin.FetchedAt.Equal(o.origin.FetchedAt) {
		return c.origin.FetchedAt.After(o.origin.FetchedAt)
	}
	if c.value != o.value {
		return c.value < o.value
	}
	return c.origin.Less(o.origin)
}

func textCandidate(v *string, origin model.Provenance) candidate {
	if v == nil {
		return candidate{}
	}
	return candidate{present: true, length: utf8.RuneCountInString(*v), value: *v, origin: origin}
}

func plainCandidate(v *string, origin model.Provenance) candidate {
	if v == nil {
		return candidate{}
	}
	return candidate{present: true, value: *v, origin: origin}
}

func startCandidate(ev *model.CanonicalEvent) candidate {
	switch {
	case ev.StartAt != nil:
		return candidate{present: true, precision: 2, value: ev.StartAt.UTC().Format(time.RFC3339Nano), origin: ev.Origins.Start}
	case ev.StartDate != nil:
		return candidate{present: true, precision: 1, value: ev.StartDate.String(), origin: ev.Origins.Start}
	}
	return candidate{}
}

func priceCandidate(ev *model.CanonicalEvent) candidate {
	if ev.PriceCents == nil {
		return candidate{}
	}
	v := strconv.FormatInt(*ev.PriceCents, 10)
	if ev.PriceCurrency != nil {
		v += " " + *ev.PriceCurrency
	}
	return candidate{present: true, value: v, origin: ev.Origins.Price}
}

// Merge 把 src 并入 dst（原地修改 dst）。来源列表追加 src 的全部来源；
// 舞种取并集，布尔标记取或。IdentityKey 由调用方重新计算
func (r *Resolver) Merge(dst, src *model.CanonicalEvent) {
	title := candidate{present: true, length: utf8.RuneCountInString(dst.Title), value: dst.Title, origin: dst.Origins.Title}
	srcTitle := candidate{present: true, length: utf8.RuneCountInString(src.Title), value: src.Title, origin: src.Origins.Title}
	if srcTitle.beats(title) {
		dst.Title = src.Title
		dst.Origins.Title = src.Origins.Title
		// 城市/国家随标题来源走，同一次运行中二者本就相同
		dst.City, dst.Country = src.City, src.Country
	}

	if plainCandidate(src.Description, src.Origins.Description).beats(plainCandidate(dst.Description, dst.Origins.Description)) {
		dst.Description = src.Description
		dst.Origins.Description = src.Origins.Description
	}
	if textCandidate(src.VenueName, src.Origins.Venue).beats(textCandidate(dst.VenueName, dst.Origins.Venue)) {
		dst.VenueName = src.VenueName
		dst.Origins.Venue = src.Origins.Venue
	}
	if textCandidate(src.Address, src.Origins.Address).beats(textCandidate(dst.Address, dst.Origins.Address)) {
		dst.Address = src.Address
		dst.Origins.Address = src.Origins.Address
	}
	if startCandidate(src).beats(startCandidate(dst)) {
		dst.StartAt, dst.StartDate = src.StartAt, src.StartDate
		dst.Origins.Start = src.Origins.Start
	}
	if priceCandidate(src).beats(priceCandidate(dst)) {
		dst.PriceCents, dst.PriceCurrency = src.PriceCents, src.PriceCurrency
		dst.Origins.Price = src.Origins.Price
	}

	dst.DanceStyles = unionStyles(dst.DanceStyles, src.DanceStyles)
	dst.LiveBand = dst.LiveBand || src.LiveBand
	dst.ClassBefore = dst.ClassBefore || src.ClassBefore
	dst.Sources = append(dst.Sources, src.Sources...)
}
