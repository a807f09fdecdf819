package translator

import (
	"github.com/google/uuid"
	"github.com/telhawk-systems/stixbridge/internal/models"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// parseGalaxies handles a record's attached galaxy list against that record's
// produced object id.
func (ec *eventContext) parseGalaxies(galaxies []models.Galaxy, sourceID string) {
	for i := range galaxies {
		ec.parseGalaxy(&galaxies[i], sourceID)
	}
}

// parseGalaxy emits one STIX object per unseen cluster and always records the
// edge from the source object, even when the cluster was already produced for
// an earlier record of the same event. Galaxies of unknown families are
// skipped.
func (ec *eventContext) parseGalaxy(galaxy *models.Galaxy, sourceID string) {
	kind, ok := galaxyFamilies[galaxy.Type]
	if !ok {
		return
	}
	for i := range galaxy.Clusters {
		cluster := &galaxy.Clusters[i]
		if kind == "vulnerability" {
			ec.addGalaxyVulnerabilities(galaxy, cluster, sourceID)
			continue
		}
		clusterID := stix.MakeID(kind, cluster.ID())
		if !ec.galaxySeen[cluster.ID()] {
			obj := ec.buildGalaxyObject(kind, galaxy, cluster)
			if obj == nil {
				continue
			}
			ec.galaxySeen[cluster.ID()] = true
			ec.appendObject(obj, false)
		}
		ec.defined = append(ec.defined, definedEdge{sourceID: sourceID, targetID: clusterID})
	}
}

// galaxyBase assembles the shared fields for a cluster's SDO.
func (ec *eventContext) galaxyBase(kind string, galaxy *models.Galaxy, cluster *models.GalaxyCluster, id string) stix.ObjectBase {
	labels := []string{`misp:name="` + galaxy.Name + `"`}
	if cluster.TagName != "" {
		labels = append(labels, cluster.TagName)
	}
	return stix.ObjectBase{
		Type:         kind,
		ID:           id,
		Created:      ec.timestamp,
		Modified:     ec.timestamp,
		CreatedByRef: ec.identityID,
		Labels:       labels,
	}
}

// galaxyDescription joins the galaxy and cluster descriptions.
func galaxyDescription(galaxy *models.Galaxy, cluster *models.GalaxyCluster) string {
	switch {
	case galaxy.Description == "":
		return cluster.Description
	case cluster.Description == "":
		return galaxy.Description
	default:
		return galaxy.Description + " | " + cluster.Description
	}
}

func galaxyKillChain(galaxy *models.Galaxy) []stix.KillChainPhase {
	return []stix.KillChainPhase{{KillChainName: killChainName, PhaseName: galaxy.Type}}
}

// buildGalaxyObject constructs the SDO for one cluster. A nil return means
// the cluster record was not representable and is skipped.
func (ec *eventContext) buildGalaxyObject(kind string, galaxy *models.Galaxy, cluster *models.GalaxyCluster) stix.Object {
	id := stix.MakeID(kind, cluster.ID())
	base := ec.galaxyBase(kind, galaxy, cluster, id)
	description := galaxyDescription(galaxy, cluster)

	switch kind {
	case "attack-pattern":
		obj, err := stix.NewAttackPattern(stix.AttackPattern{
			ObjectBase:      base,
			Name:            cluster.Value,
			Description:     description,
			KillChainPhases: galaxyKillChain(galaxy),
		})
		if err != nil {
			return nil
		}
		return obj
	case "course-of-action":
		obj, err := stix.NewCourseOfAction(stix.CourseOfAction{
			ObjectBase:  base,
			Name:        cluster.Value,
			Description: description,
		})
		if err != nil {
			return nil
		}
		return obj
	case "intrusion-set":
		obj, err := stix.NewIntrusionSet(stix.IntrusionSet{
			ObjectBase:  base,
			Name:        cluster.Value,
			Description: description,
			Aliases:     cluster.Meta.Synonyms,
		})
		if err != nil {
			return nil
		}
		return obj
	case "malware":
		obj, err := stix.NewMalware(stix.Malware{
			ObjectBase:      base,
			Name:            cluster.Value,
			Description:     description,
			KillChainPhases: galaxyKillChain(galaxy),
		})
		if err != nil {
			return nil
		}
		return obj
	case "threat-actor":
		obj, err := stix.NewThreatActor(stix.ThreatActor{
			ObjectBase:  base,
			Name:        cluster.Value,
			Description: description,
			Aliases:     cluster.Meta.Synonyms,
		})
		if err != nil {
			return nil
		}
		return obj
	case "tool":
		obj, err := stix.NewTool(stix.Tool{
			ObjectBase:      base,
			Name:            cluster.Value,
			Description:     description,
			KillChainPhases: galaxyKillChain(galaxy),
		})
		if err != nil {
			return nil
		}
		return obj
	}
	return nil
}

// addGalaxyVulnerabilities expands a branded-vulnerability cluster: one
// vulnerability per alias, the first keeping the cluster's uuid. Every
// produced vulnerability is linked to the source object.
func (ec *eventContext) addGalaxyVulnerabilities(galaxy *models.Galaxy, cluster *models.GalaxyCluster, sourceID string) {
	names := cluster.Meta.Aliases
	if len(names) == 0 {
		names = []string{cluster.Value}
	}
	seen := ec.galaxySeen[cluster.ID()]
	for i, name := range names {
		vulnUUID := cluster.ID()
		if i > 0 {
			vulnUUID = uuid.NewString()
		}
		id := stix.MakeID("vulnerability", vulnUUID)
		if !seen {
			vuln, err := stix.NewVulnerability(stix.Vulnerability{
				ObjectBase:  ec.galaxyBase("vulnerability", galaxy, cluster, id),
				Name:        name,
				Description: galaxyDescription(galaxy, cluster),
			})
			if err != nil {
				continue
			}
			ec.appendObject(vuln, false)
			ec.galaxySeen[cluster.ID()] = true
		}
		if i == 0 {
			ec.defined = append(ec.defined, definedEdge{sourceID: sourceID, targetID: id})
		}
	}
}
