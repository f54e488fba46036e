package controller

import (
	"context"
	"strings"

	"github.com/ritzau/mindmesh/pkg/cogmap"
	"github.com/ritzau/mindmesh/pkg/generate"
)

// variant is what differs between the single-topic and the fusion page.
type variant struct {
	kind         cogmap.Kind
	defaultTrail string
	fallback     string

	// check trims the request and validates it.
	check func(Request) (Request, error)
	fetch func(context.Context, generate.Generator, Request, generate.Complexity) (*cogmap.Map, error)
	image func(Request) string
}

func normalizeComplexity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var singleVariant = variant{
	kind:         cogmap.KindSingle,
	defaultTrail: cogmap.DefaultTrail,
	fallback:     generate.FallbackMapMessage,
	check: func(r Request) (Request, error) {
		r = Request{Topic: strings.TrimSpace(r.Topic), Complexity: normalizeComplexity(r.Complexity)}
		return r, validateForm(singleForm{Topic: r.Topic, Complexity: r.Complexity}, MsgEnterTopic)
	},
	fetch: func(ctx context.Context, g generate.Generator, r Request, cx generate.Complexity) (*cogmap.Map, error) {
		return g.RequestMap(ctx, r.Topic, cx)
	},
	image: func(r Request) string {
		return cogmap.ImageFilename(cogmap.KindSingle, r.Topic)
	},
}

var fusionVariant = variant{
	kind:         cogmap.KindFusion,
	defaultTrail: cogmap.DefaultFusionTrail,
	fallback:     generate.FallbackFusionMessage,
	check: func(r Request) (Request, error) {
		r = Request{
			TopicA:     strings.TrimSpace(r.TopicA),
			TopicB:     strings.TrimSpace(r.TopicB),
			Complexity: normalizeComplexity(r.Complexity),
		}
		form := fusionForm{TopicA: r.TopicA, TopicB: r.TopicB, Complexity: r.Complexity}
		return r, validateForm(form, MsgEnterBothTopics)
	},
	fetch: func(ctx context.Context, g generate.Generator, r Request, cx generate.Complexity) (*cogmap.Map, error) {
		return g.RequestFusionMap(ctx, r.TopicA, r.TopicB, cx)
	},
	image: func(r Request) string {
		return cogmap.ImageFilename(cogmap.KindFusion, r.TopicA, r.TopicB)
	},
}
