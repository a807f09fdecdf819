package translator

import (
	"strconv"
	"strings"

	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// resolveHeld runs after every sibling record of the event has been seen. It
// walks the deferred file objects in discovery order, joins each with its pe
// structure and that structure's sections, folds the to_ids flags, and emits
// one merged indicator or observed-data per file. A file whose pe reference
// never materialized falls back to the plain file builders.
func (ec *eventContext) resolveHeld() error {
	files := ec.held["file"]
	pes := ec.held["pe"]
	sections := ec.held["pe-section"]

	for _, fileUUID := range ec.heldOrder {
		file, ok := files[fileUUID]
		if !ok {
			continue
		}
		pe, found := linkedPE(file.object, pes)
		if !found {
			if err := ec.emitPlainFile(file); err != nil {
				return err
			}
			continue
		}

		var linkedSections []heldObject
		toIDS := file.toIDS || pe.toIDS
		for _, ref := range pe.object.References {
			if section, ok := sections[ref.ReferencedUUID]; ok {
				linkedSections = append(linkedSections, section)
				toIDS = toIDS || section.toIDS
			}
		}

		var err error
		if toIDS {
			clauses := append(fileClauses(file.object), peClauses(file.object, pe.object, linkedSections)...)
			err = ec.objectIndicator(file.object, wrapPattern(clauses))
		} else {
			observable := fileObservable(file.object)
			attachPEExtension(observable, peExtension(file.object, pe.object, linkedSections))
			err = ec.objectObservable(file.object, observable)
		}
		if err != nil {
			if err := ec.objectCustom(file.object); err != nil {
				return err
			}
			continue
		}
		// Galaxies on the swallowed pe and section attributes hang off the
		// merged object's id.
		targetID := stix.MakeID("observed-data", file.object.UUID)
		if toIDS {
			targetID = stix.MakeID("indicator", file.object.UUID)
		}
		ec.parseObjectGalaxies(pe.object, targetID)
		for _, section := range linkedSections {
			ec.parseObjectGalaxies(section.object, targetID)
		}
	}
	return nil
}

func (ec *eventContext) emitPlainFile(file heldObject) error {
	var err error
	if file.toIDS {
		err = ec.objectIndicator(file.object, filePattern(file.object))
	} else {
		err = ec.objectObservable(file.object, fileObservable(file.object))
	}
	if err != nil {
		return ec.objectCustom(file.object)
	}
	return nil
}

// linkedPE finds the pe structure a file object references through an
// includes edge.
func linkedPE(file *models.Object, pes map[string]heldObject) (heldObject, bool) {
	for _, ref := range file.References {
		if !peLinkRelations[ref.RelationshipType] {
			continue
		}
		if pe, ok := pes[ref.ReferencedUUID]; ok {
			return pe, true
		}
	}
	return heldObject{}, false
}

// inferPEType derives the executable kind when the pe object does not declare
// one: the filename extension decides, with the file's mime type as a second
// chance and "exe" as the final fallback.
func inferPEType(file, pe *models.Object) string {
	if declared, ok := relationValue(pe, "type"); ok && declared != "" {
		return declared
	}
	names := []string{}
	for _, relation := range []string{"original-filename", "internal-filename"} {
		if name, ok := relationValue(pe, relation); ok {
			names = append(names, name)
		}
	}
	if name, ok := relationValue(file, "filename"); ok {
		names = append(names, name)
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, kind := range []string{"exe", "dll", "sys"} {
			if strings.HasSuffix(lower, "."+kind) {
				return kind
			}
		}
	}
	if mime, ok := relationValue(file, "mime-type"); ok && strings.Contains(strings.ToLower(mime), "dosexec") {
		return "exe"
	}
	return "exe"
}

const peClausePrefix = "file:extensions.'" + peExtensionKey + "'."

// peClauses renders the executable structure's pattern clauses, the sections
// indexed in link order.
func peClauses(file, pe *models.Object, sections []heldObject) []string {
	clauses := []string{clause(peClausePrefix+"pe_type", inferPEType(file, pe))}
	for i := range pe.Attributes {
		attr := &pe.Attributes[i]
		relation := attr.ObjectRelation
		if relation == "type" {
			continue
		}
		if relation == "number-sections" {
			continue
		}
		if field, ok := peMapping[relation]; ok {
			clauses = append(clauses, clause(peClausePrefix+field, attr.Value))
		} else {
			clauses = append(clauses, clause(peClausePrefix+customFieldName(attr.Type, relation), attr.Value))
		}
	}
	clauses = append(clauses, clause(peClausePrefix+"number_of_sections", len(sections)))

	for n, section := range sections {
		prefix := peClausePrefix + "sections[" + strconv.Itoa(n) + "]."
		for i := range section.object.Attributes {
			attr := &section.object.Attributes[i]
			relation := attr.ObjectRelation
			if isHashType(relation) {
				clauses = append(clauses, clause(prefix+"hashes.'"+hashFeatures[relation]+"'", attr.Value))
				continue
			}
			if field, ok := peSectionMapping[relation]; ok {
				clauses = append(clauses, clause(prefix+field, attr.Value))
			}
		}
	}
	return clauses
}

// peExtension builds the windows-pebinary-ext dictionary for the observable
// form. The linked section structures decide number_of_sections; a
// conflicting declared number-sections value is overridden, even down to
// zero.
func peExtension(file, pe *models.Object, sections []heldObject) map[string]any {
	extension := map[string]any{"pe_type": inferPEType(file, pe)}
	for i := range pe.Attributes {
		attr := &pe.Attributes[i]
		relation := attr.ObjectRelation
		if relation == "type" || relation == "number-sections" {
			continue
		}
		if field, ok := peMapping[relation]; ok {
			extension[field] = attr.Value
		} else {
			extension[customFieldName(attr.Type, relation)] = attr.Value
		}
	}
	extension["number_of_sections"] = len(sections)

	var sectionDicts []map[string]any
	for n, section := range sections {
		dict := map[string]any{}
		hashes := map[string]any{}
		for i := range section.object.Attributes {
			attr := &section.object.Attributes[i]
			relation := attr.ObjectRelation
			if isHashType(relation) {
				hashes[hashFeatures[relation]] = attr.Value
				continue
			}
			switch relation {
			case "name":
				dict["name"] = attr.Value
			case "size-in-bytes":
				dict["size"] = attr.Value
			case "entropy":
				if entropy, err := strconv.ParseFloat(attr.Value, 64); err == nil {
					dict["entropy"] = entropy
				}
			}
		}
		if _, ok := dict["name"]; !ok {
			dict["name"] = "Section " + strconv.Itoa(n)
		}
		if len(hashes) > 0 {
			dict["hashes"] = hashes
		}
		sectionDicts = append(sectionDicts, dict)
	}
	if len(sectionDicts) > 0 {
		extension["sections"] = sectionDicts
	}
	return extension
}

// attachPEExtension hangs the executable structure off the observable's
// primary file node.
func attachPEExtension(observable map[string]stix.Node, extension map[string]any) {
	for _, node := range observable {
		if node.Type() == "file" {
			node["extensions"] = map[string]any{peExtensionKey: extension}
			return
		}
	}
}
