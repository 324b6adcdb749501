// Package loader builds symbol graphs from YAML documents.
//
// A document declares versioned contexts with their types, type
// parameters and generic methods, plus the retargeting and
// specialization requests whose wrapped parameters should be checked
// alongside the declared ones:
//
//	contexts:
//	  - name: Lib
//	    version: 1.0.0
//	    types:
//	      - name: Pair
//	        kind: class
//	        type_params:
//	          - name: T
//	            constraints: [U, "IComparable<T>"]
//	            locations: ["pair.cs:3:12-3:13"]
//	          - name: U
//	retarget:
//	  - from: Lib@1.0.0
//	    to: Lib@^2
//	specialize:
//	  - context: Lib@1.0.0
//	    type: Pair
package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/tparams/internal/errors"
)

// Document is the YAML form of a symbol graph.
type Document struct {
	Contexts   []ContextDoc    `yaml:"contexts" validate:"required,min=1,dive"`
	Retarget   []RetargetDoc   `yaml:"retarget" validate:"dive"`
	Specialize []SpecializeDoc `yaml:"specialize" validate:"dive"`
}

type ContextDoc struct {
	Name    string    `yaml:"name" validate:"required,excludesall=@"`
	Version string    `yaml:"version" validate:"required,semver"`
	Types   []TypeDoc `yaml:"types" validate:"dive"`
}

type TypeDoc struct {
	Name       string         `yaml:"name" validate:"required,excludesall=<>@0x2C"`
	Kind       string         `yaml:"kind" validate:"required,oneof=class interface struct"`
	Base       string         `yaml:"base"`
	Interfaces []string       `yaml:"interfaces"`
	TypeParams []TypeParamDoc `yaml:"type_params" validate:"dive"`
	Methods    []MethodDoc    `yaml:"methods" validate:"dive"`
}

type MethodDoc struct {
	Name       string         `yaml:"name" validate:"required"`
	TypeParams []TypeParamDoc `yaml:"type_params" validate:"min=1,dive"`
}

type TypeParamDoc struct {
	Name          string         `yaml:"name" validate:"required,excludesall=<>@0x2C"`
	Variance      string         `yaml:"variance" validate:"omitempty,oneof=invariant covariant contravariant in out"`
	ReferenceType bool           `yaml:"reference_type"`
	ValueType     bool           `yaml:"value_type" validate:"excluded_with=ReferenceType"`
	Constructor   bool           `yaml:"constructor"`
	Implicit      bool           `yaml:"implicit"`
	Constraints   []string       `yaml:"constraints"`
	Locations     []string       `yaml:"locations"`
	Syntax        string         `yaml:"syntax"`
	Doc           string         `yaml:"doc"`
	Attributes    []AttributeDoc `yaml:"attributes" validate:"dive"`
}

type AttributeDoc struct {
	Name string   `yaml:"name" validate:"required"`
	Args []string `yaml:"args"`
}

// RetargetDoc asks for the generic types of one context to be seen from
// another. Both ends are context references; Types limits the request
// to the named types.
type RetargetDoc struct {
	From  string   `yaml:"from" validate:"required,contains=@"`
	To    string   `yaml:"to" validate:"required,contains=@"`
	Types []string `yaml:"types"`
}

// SpecializeDoc asks for the type parameters of a type, or of one of its
// methods, to be copied into a synthesized container.
type SpecializeDoc struct {
	Context string `yaml:"context" validate:"required,contains=@"`
	Type    string `yaml:"type" validate:"required"`
	Method  string `yaml:"method"`
	Prefix  string `yaml:"prefix"`
}

var validate = validator.New()

// Decode parses and validates a document. Unknown fields are rejected.
func Decode(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse symbol graph: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, validationError(err)
	}
	return &doc, nil
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.InvalidInput("INVALID_GRAPH", "invalid symbol graph: %v", err)
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
	}
	return errors.InvalidInput("INVALID_GRAPH", "invalid symbol graph: %s", strings.Join(fields, ", "))
}
