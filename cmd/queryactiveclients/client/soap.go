package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	// Namespace is the ATWS v1.6 service namespace.
	Namespace = "http://autotask.net/ATWS/v1_6/"

	soapNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	xsiNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNamespace  = "http://www.w3.org/2001/XMLSchema"
)

var ErrMalformedResponse = errors.New("malformed SOAP response")

// FaultError is a SOAP fault returned by the service.
type FaultError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("soap fault %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// param is a child element of an operation, in document order.
type param struct {
	name  string
	value string
}

func soapAction(operation string) string {
	return `"` + Namespace + operation + `"`
}

// newEnvelope builds a SOAP 1.1 request for operation. The integration code
// header is only added when code is non-empty.
func newEnvelope(operation, integrationCode string, params ...param) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	envelope := doc.CreateElement("soap:Envelope")
	envelope.CreateAttr("xmlns:soap", soapNamespace)
	envelope.CreateAttr("xmlns:xsi", xsiNamespace)
	envelope.CreateAttr("xmlns:xsd", xsdNamespace)

	if integrationCode != "" {
		integrations := envelope.CreateElement("soap:Header").CreateElement("AutotaskIntegrations")
		integrations.CreateAttr("xmlns", Namespace)
		integrations.CreateElement("IntegrationCode").SetText(integrationCode)
	}

	op := envelope.CreateElement("soap:Body").CreateElement(operation)
	op.CreateAttr("xmlns", Namespace)
	for _, p := range params {
		op.CreateElement(p.name).SetText(p.value)
	}
	return doc
}

// parseEnvelope returns the first element inside soap:Body, or a *FaultError
// when the body carries a fault.
func parseEnvelope(body []byte, statusCode int) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: missing envelope", ErrMalformedResponse)
	}
	soapBody := child(root, "Body")
	if soapBody == nil {
		return nil, fmt.Errorf("%w: missing body", ErrMalformedResponse)
	}
	payload := soapBody.ChildElements()
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	if payload[0].Tag == "Fault" {
		return nil, &FaultError{
			StatusCode: statusCode,
			Code:       text(payload[0], "faultcode"),
			Message:    text(payload[0], "faultstring"),
		}
	}
	return payload[0], nil
}

// child returns the first child element of el with the given local name,
// whatever its namespace prefix.
func child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var matched []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			matched = append(matched, c)
		}
	}
	return matched
}

func text(el *etree.Element, tag string) string {
	if c := child(el, tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}
