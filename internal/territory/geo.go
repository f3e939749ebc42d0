package territory

// Static geography of the Spanish territorial model. Codes follow the internal
// conventions used across the platform: provinces are "p_" plus the two-digit
// INE province code, autonomies "c_" plus the two-digit INE autonomy code,
// islands "i_" plus a two-digit code, towns "m_" plus the INE municipality
// code (the province digits sit at positions 2-3).

type geoEntry struct {
	code string
	name string
}

// autonomies maps each province code to its autonomous community.
var autonomies = map[string]geoEntry{
	"p_01": {"c_16", "Euskadi"},
	"p_02": {"c_08", "Castilla-La Mancha"},
	"p_03": {"c_10", "Comunitat Valenciana"},
	"p_04": {"c_01", "Andalucía"},
	"p_05": {"c_07", "Castilla y León"},
	"p_06": {"c_11", "Extremadura"},
	"p_07": {"c_04", "Illes Balears"},
	"p_08": {"c_09", "Catalunya"},
	"p_09": {"c_07", "Castilla y León"},
	"p_10": {"c_11", "Extremadura"},
	"p_11": {"c_01", "Andalucía"},
	"p_12": {"c_10", "Comunitat Valenciana"},
	"p_13": {"c_08", "Castilla-La Mancha"},
	"p_14": {"c_01", "Andalucía"},
	"p_15": {"c_12", "Galicia"},
	"p_16": {"c_08", "Castilla-La Mancha"},
	"p_17": {"c_09", "Catalunya"},
	"p_18": {"c_01", "Andalucía"},
	"p_19": {"c_08", "Castilla-La Mancha"},
	"p_20": {"c_16", "Euskadi"},
	"p_21": {"c_01", "Andalucía"},
	"p_22": {"c_02", "Aragón"},
	"p_23": {"c_01", "Andalucía"},
	"p_24": {"c_07", "Castilla y León"},
	"p_25": {"c_09", "Catalunya"},
	"p_26": {"c_17", "La Rioja"},
	"p_27": {"c_12", "Galicia"},
	"p_28": {"c_13", "Comunidad de Madrid"},
	"p_29": {"c_01", "Andalucía"},
	"p_30": {"c_14", "Región de Murcia"},
	"p_31": {"c_15", "Navarra"},
	"p_32": {"c_12", "Galicia"},
	"p_33": {"c_03", "Asturias"},
	"p_34": {"c_07", "Castilla y León"},
	"p_35": {"c_05", "Canarias"},
	"p_36": {"c_12", "Galicia"},
	"p_37": {"c_07", "Castilla y León"},
	"p_38": {"c_05", "Canarias"},
	"p_39": {"c_06", "Cantabria"},
	"p_40": {"c_07", "Castilla y León"},
	"p_41": {"c_01", "Andalucía"},
	"p_42": {"c_07", "Castilla y León"},
	"p_43": {"c_09", "Catalunya"},
	"p_44": {"c_02", "Aragón"},
	"p_45": {"c_08", "Castilla-La Mancha"},
	"p_46": {"c_10", "Comunitat Valenciana"},
	"p_47": {"c_07", "Castilla y León"},
	"p_48": {"c_16", "Euskadi"},
	"p_49": {"c_07", "Castilla y León"},
	"p_50": {"c_02", "Aragón"},
	"p_51": {"c_18", "Ceuta"},
	"p_52": {"c_19", "Melilla"},
}

var provinceNames = map[string]string{
	"p_01": "Araba/Álava",
	"p_02": "Albacete",
	"p_03": "Alacant/Alicante",
	"p_04": "Almería",
	"p_05": "Ávila",
	"p_06": "Badajoz",
	"p_07": "Illes Balears",
	"p_08": "Barcelona",
	"p_09": "Burgos",
	"p_10": "Cáceres",
	"p_11": "Cádiz",
	"p_12": "Castelló/Castellón",
	"p_13": "Ciudad Real",
	"p_14": "Córdoba",
	"p_15": "A Coruña",
	"p_16": "Cuenca",
	"p_17": "Girona",
	"p_18": "Granada",
	"p_19": "Guadalajara",
	"p_20": "Gipuzkoa",
	"p_21": "Huelva",
	"p_22": "Huesca",
	"p_23": "Jaén",
	"p_24": "León",
	"p_25": "Lleida",
	"p_26": "La Rioja",
	"p_27": "Lugo",
	"p_28": "Madrid",
	"p_29": "Málaga",
	"p_30": "Murcia",
	"p_31": "Navarra",
	"p_32": "Ourense",
	"p_33": "Asturias",
	"p_34": "Palencia",
	"p_35": "Las Palmas",
	"p_36": "Pontevedra",
	"p_37": "Salamanca",
	"p_38": "Santa Cruz de Tenerife",
	"p_39": "Cantabria",
	"p_40": "Segovia",
	"p_41": "Sevilla",
	"p_42": "Soria",
	"p_43": "Tarragona",
	"p_44": "Teruel",
	"p_45": "Toledo",
	"p_46": "València/Valencia",
	"p_47": "Valladolid",
	"p_48": "Bizkaia",
	"p_49": "Zamora",
	"p_50": "Zaragoza",
	"p_51": "Ceuta",
	"p_52": "Melilla",
}

// islands maps municipality codes to their island. Covers the municipalities
// with registered circles on the Balearic and Canary islands.
var islands = map[string]geoEntry{
	// Mallorca
	"m_07040": {"i_01", "Mallorca"},
	"m_07031": {"i_01", "Mallorca"},
	"m_07014": {"i_01", "Mallorca"},
	"m_07027": {"i_01", "Mallorca"},
	// Menorca
	"m_07032": {"i_02", "Menorca"},
	"m_07015": {"i_02", "Menorca"},
	// Eivissa
	"m_07026": {"i_03", "Eivissa"},
	"m_07046": {"i_03", "Eivissa"},
	"m_07048": {"i_03", "Eivissa"},
	// Formentera
	"m_07024": {"i_04", "Formentera"},
	// Gran Canaria
	"m_35016": {"i_05", "Gran Canaria"},
	"m_35026": {"i_05", "Gran Canaria"},
	"m_35022": {"i_05", "Gran Canaria"},
	// Lanzarote
	"m_35004": {"i_06", "Lanzarote"},
	"m_35024": {"i_06", "Lanzarote"},
	// Fuerteventura
	"m_35017": {"i_07", "Fuerteventura"},
	// Tenerife
	"m_38038": {"i_08", "Tenerife"},
	"m_38023": {"i_08", "Tenerife"},
	"m_38001": {"i_08", "Tenerife"},
	// La Palma
	"m_38037": {"i_09", "La Palma"},
	"m_38024": {"i_09", "La Palma"},
	// La Gomera
	"m_38036": {"i_10", "La Gomera"},
	// El Hierro
	"m_38048": {"i_11", "El Hierro"},
}

// countryNames resolves ISO 3166-1 alpha-2 codes for the countries with
// exterior circles. Unknown codes resolve soft to "".
var countryNames = map[string]string{
	"ES": "Spain",
	"DE": "Germany",
	"FR": "France",
	"GB": "United Kingdom",
	"IE": "Ireland",
	"IT": "Italy",
	"PT": "Portugal",
	"BE": "Belgium",
	"NL": "Netherlands",
	"CH": "Switzerland",
	"AT": "Austria",
	"US": "United States",
	"MX": "Mexico",
	"AR": "Argentina",
	"CL": "Chile",
	"CO": "Colombia",
	"EC": "Ecuador",
	"PE": "Peru",
	"UY": "Uruguay",
	"VE": "Venezuela",
	"BR": "Brazil",
	"CU": "Cuba",
	"MA": "Morocco",
	"AU": "Australia",
	"CA": "Canada",
}

// AutonomyForProvince resolves the autonomy code and name of a province code.
func AutonomyForProvince(provinceCode string) (code, name string, ok bool) {
	entry, ok := autonomies[provinceCode]
	return entry.code, entry.name, ok
}

// IslandForTown resolves the island of a municipality code, when it is one of
// the island municipalities.
func IslandForTown(town string) (code, name string, ok bool) {
	entry, ok := islands[town]
	return entry.code, entry.name, ok
}

// ProvinceName resolves a province code to its display name, "" when unknown.
func ProvinceName(provinceCode string) string {
	return provinceNames[provinceCode]
}

// AutonomyName resolves a province code to its autonomy's display name.
func AutonomyName(provinceCode string) string {
	return autonomies[provinceCode].name
}

// CountryName resolves a country code to its display name, "" when unknown.
func CountryName(countryCode string) string {
	return countryNames[countryCode]
}
