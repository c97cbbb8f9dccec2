// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

var errNilDest = errors.New("nil destination")

func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := pluginType + "-" + pluginName + "-" + p.Name
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: %w", flagName, errNilDest)
		}
		defVal, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: %w", flagName, errNilDest)
		}
		defVal, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: %w", flagName, errNilDest)
		}
		defVal, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, defVal, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: %w", flagName, errNilDest)
		}
		defVal, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, defVal, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, flagName)
	}
	return nil
}

// ProcessEnvVar parses a string value from the environment into the option destination
func (p *PluginOption) ProcessEnvVar(value string) error {
	switch p.Type {
	case PluginOptionTypeString:
		return p.set(value)
	case PluginOptionTypeBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		return p.set(v)
	case PluginOptionTypeInt:
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		return p.set(v)
	case PluginOptionTypeUint:
		v, err := parseUint(value)
		if err != nil {
			return err
		}
		return p.set(v)
	default:
		return fmt.Errorf("unknown plugin option type %d", p.Type)
	}
}

// ProcessConfig stores a value decoded from YAML into the option destination
func (p *PluginOption) ProcessConfig(value any) error {
	// YAML decodes integers as int regardless of the target
	if p.Type == PluginOptionTypeUint {
		if v, ok := value.(int); ok {
			if v < 0 {
				return errors.New("negative value for unsigned option")
			}
			return p.set(uint64(v))
		}
	}
	if s, ok := value.(string); ok && p.Type != PluginOptionTypeString {
		return p.ProcessEnvVar(s)
	}
	return p.set(value)
}

// set performs a type-checked assignment into the Dest pointer
func (p *PluginOption) set(value any) error {
	switch p.Type {
	case PluginOptionTypeString:
		return assign[string](p.Name, p.Dest, value)
	case PluginOptionTypeBool:
		return assign[bool](p.Name, p.Dest, value)
	case PluginOptionTypeInt:
		return assign[int](p.Name, p.Dest, value)
	case PluginOptionTypeUint:
		return assign[uint64](p.Name, p.Dest, value)
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			p.Name,
		)
	}
}

func assign[T any](name string, dest any, value any) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf(
			"invalid type for option %s: expected %T, got %T",
			name,
			v,
			value,
		)
	}
	if dest == nil {
		return fmt.Errorf("option %s: %w", name, errNilDest)
	}
	d, ok := dest.(*T)
	if !ok {
		return fmt.Errorf(
			"invalid destination type for option %s: expected *%T",
			name,
			v,
		)
	}
	if d == nil {
		return fmt.Errorf("option %s: %w", name, errNilDest)
	}
	*d = v
	return nil
}
