package rpc

import (
	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/part"
)

type partsFilter func(t *part.Tree, args []string) ([]*part.Part, error)

// partsQuery runs filter against the vessel named by args[0]. Filter
// arguments start at index 1. The reply is always a list, possibly empty.
func (s *Service) partsQuery(filter partsFilter) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		args := clientArgs(e)
		v, err := s.lookupVessel(args)
		if err != nil {
			return nil, err
		}
		parts, err := filter(v.Parts(), args)
		if err != nil {
			return nil, err
		}
		return refsOf(parts), nil
	}
}

func (s *Service) withString(fn func(*part.Tree, string) []*part.Part, name string) partsFilter {
	return func(t *part.Tree, args []string) ([]*part.Part, error) {
		v, err := s.deps.Parser.ParseString(args, 1, name)
		if err != nil {
			return nil, badArgs(err)
		}
		return fn(t, v), nil
	}
}

func (s *Service) withInt(fn func(*part.Tree, int) []*part.Part, name string) partsFilter {
	return func(t *part.Tree, args []string) ([]*part.Part, error) {
		v, err := s.deps.Parser.ParseInt(args, 1, name)
		if err != nil {
			return nil, badArgs(err)
		}
		return fn(t, v), nil
	}
}

func (s *Service) withCategory(t *part.Tree, args []string) ([]*part.Part, error) {
	c, err := s.deps.Parser.ParseCategory(args, 1)
	if err != nil {
		return nil, badArgs(err)
	}
	return t.WithCategory(c), nil
}

// engineFacetInfo and reactionWheelFacetInfo answer null for a part without
// the facet; only writes to a missing facet are errors.
func engineFacetInfo(p *part.Part) (any, error) {
	if e := p.Engine(); e != nil {
		return engineInfo(e), nil
	}
	return nil, nil
}

func reactionWheelFacetInfo(p *part.Part) (any, error) {
	if w := p.ReactionWheel(); w != nil {
		return reactionWheelInfo(w), nil
	}
	return nil, nil
}
